package stark

import (
	"fmt"
	"math/big"

	"github.com/lucenta/starkcore/internal/starkcore/air"
	"github.com/lucenta/starkcore/internal/starkcore/composition"
	"github.com/lucenta/starkcore/internal/starkcore/core"
	"github.com/lucenta/starkcore/internal/starkcore/fri"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// Proof is the byte-stream-equivalent artifact spec.md §3/§6 describes: a
// trace commitment (plus an auxiliary-trace commitment when the AIR declares
// an interaction), the out-of-domain ("DEEP") consistency values, a FRI
// proof over the combined DEEP polynomial, a proof-of-work nonce, and one
// decommitted trace row per query — enough for a verifier to check every
// step of the prover's flow without ever seeing the full trace or
// composition polynomial.
type Proof struct {
	TraceCommitment       core.Digest
	AuxCommitment         core.Digest // nil when the AIR has no interaction
	CompositionCommitment core.Digest
	OodMaskValues         []*core.FieldElement
	OodCompositionValue   *core.FieldElement
	FriProof              *fri.Proof
	PowNonce              uint64
	QueryIndices          []int
	QueryTraceRows        [][]*core.FieldElement
	QueryTracePaths       [][]core.Digest
	QueryAuxRows          [][]*core.FieldElement // nil when the AIR has no interaction
	QueryAuxPaths         [][]core.Digest
	QueryCompositionValue []*core.FieldElement
	QueryCompositionPath  [][]core.Digest
}

func rowBytes(values []*core.FieldElement) []byte {
	buf := make([]byte, 0, len(values)*32)
	for _, v := range values {
		buf = append(buf, v.Bytes()...)
	}
	return buf
}

// commitColumns commits one row per domain index, each row the concatenated
// byte encodings of that index's value in every column.
func commitColumns(hf core.HashFunction, columns [][]*core.FieldElement, numRows int) (*core.MerkleTableCommitter, core.Digest, error) {
	committer := core.NewMerkleTableCommitter(hf)
	if err := committer.StartAdd(numRows); err != nil {
		return nil, nil, err
	}
	row := make([]*core.FieldElement, len(columns))
	for idx := 0; idx < numRows; idx++ {
		for col := range columns {
			row[col] = columns[col][idx]
		}
		if err := committer.Add(idx, rowBytes(row)); err != nil {
			return nil, nil, err
		}
	}
	root, err := committer.Commit()
	if err != nil {
		return nil, nil, err
	}
	return committer, root, nil
}

// Prove runs the full prover flow for AIR a over trace, per spec.md §4.10:
//  1. interpolate and commit the (LDE-extended) trace;
//  2. if the AIR declares an interaction, draw its challenges and build,
//     extend and commit the auxiliary trace;
//  3. draw composition random coefficients and evaluate the composition
//     polynomial over the LDE domain;
//  4. draw an out-of-domain point and send the trace/composition values
//     there (the DEEP consistency values);
//  5. fold the trace and composition evaluations into one DEEP polynomial
//     and commit it via FRI, then grind a proof-of-work nonce;
//  6. answer NumQueries query indices with decommitted trace rows and FRI
//     query openings.
func Prove(a air.AIR, trace *air.Trace, params *Parameters, seed []byte) (*Proof, error) {
	if err := air.ValidateTrace(a, trace); err != nil {
		return nil, err
	}
	if err := params.Validate(a); err != nil {
		return nil, err
	}
	field := a.Field()
	domainLog, err := params.EvaluationDomainLogSize(a)
	if err != nil {
		return nil, err
	}
	blowup := 1 << uint(params.BlowupFactorLog2)

	traceDomain, err := core.NewFftDomain(field, a.TraceLength(), nil, core.NaturalOrder)
	if err != nil {
		return nil, err
	}
	ldeDomain, err := core.NewFftDomain(field, 1<<uint(domainLog), field.FromUint64(3), core.NaturalOrder)
	if err != nil {
		return nil, err
	}

	inner, err := core.NewLdeManager(traceDomain, ldeDomain)
	if err != nil {
		return nil, err
	}
	// Every column's full LDE is read at least twice (the row-major table
	// commitment and the DEEP quotient walk), so the store_full_lde mode
	// pays its FFT once per column and serves the rest from cache.
	ldeManager := core.NewCachedLdeManager(inner, core.ModeStoreFullLde)
	extendedColumns := make([][]*core.FieldElement, a.NumColumns())
	for col := 0; col < a.NumColumns(); col++ {
		if err := ldeManager.AddColumn(col, trace.Column(col)); err != nil {
			return nil, err
		}
		extendedColumns[col], err = ldeManager.EvalOnLde(col)
		if err != nil {
			return nil, err
		}
	}

	channel := utils.NewChannel(params.HashFunction, seed)

	traceCommitter, traceRoot, err := commitColumns(params.HashFunction, extendedColumns, ldeDomain.Size())
	if err != nil {
		return nil, err
	}
	channel.SendCommitmentHash(traceRoot)

	// Interaction phase: the auxiliary trace may only depend on the main
	// trace and on challenges drawn after the main trace is committed.
	interaction := a.Interaction()
	var auxCommitter *core.MerkleTableCommitter
	var auxRoot core.Digest
	numAux := 0
	if interaction != nil {
		numAux = interaction.NumAuxColumns
		challenges := make([]*core.FieldElement, interaction.NumChallenges)
		for i := range challenges {
			challenges[i] = channel.GetRandomFieldElement(field)
		}
		if interaction.BindChallenges != nil {
			interaction.BindChallenges(challenges)
		}
		auxTrace, err := interaction.BuildAuxiliaryTrace(trace, challenges)
		if err != nil {
			return nil, fmt.Errorf("stark: build auxiliary trace: %w", err)
		}
		if auxTrace.NumColumns() != numAux || auxTrace.Length() != a.TraceLength() {
			return nil, fmt.Errorf("stark: auxiliary trace is %dx%d, AIR declares %dx%d",
				auxTrace.NumColumns(), auxTrace.Length(), numAux, a.TraceLength())
		}
		auxExtended := make([][]*core.FieldElement, numAux)
		for j := 0; j < numAux; j++ {
			col := a.NumColumns() + j
			if err := ldeManager.AddColumn(col, auxTrace.Column(j)); err != nil {
				return nil, err
			}
			auxExtended[j], err = ldeManager.EvalOnLde(col)
			if err != nil {
				return nil, err
			}
		}
		auxCommitter, auxRoot, err = commitColumns(params.HashFunction, auxExtended, ldeDomain.Size())
		if err != nil {
			return nil, err
		}
		channel.SendCommitmentHash(auxRoot)
		extendedColumns = append(extendedColumns, auxExtended...)
	}

	randomCoefficients := make([]*core.FieldElement, a.NumRandomCoefficients())
	for i := range randomCoefficients {
		randomCoefficients[i] = channel.GetRandomFieldElement(field)
	}

	extendedTrace, err := air.NewTraceFromColumns(field, extendedColumns)
	if err != nil {
		return nil, err
	}
	extendedTrace.SetStride(blowup)

	evaluator, err := composition.NewEvaluator(a, randomCoefficients)
	if err != nil {
		return nil, err
	}
	compositionEvaluations, err := evaluator.EvalOverDomain(extendedTrace, ldeDomain)
	if err != nil {
		return nil, err
	}

	// The composition polynomial is committed as its own table, one row per
	// LDE domain point, so a query can open its value directly instead of
	// re-deriving it from a decommitted trace row — the latter only works
	// when every mask entry reads RowOffset 0, since recomputing constraints
	// at a single row has no way to see the neighbor rows a transition
	// constraint's mask may reference.
	compositionCommitter := core.NewMerkleTableCommitter(params.HashFunction)
	if err := compositionCommitter.StartAdd(ldeDomain.Size()); err != nil {
		return nil, err
	}
	for idx, v := range compositionEvaluations {
		if err := compositionCommitter.Add(idx, v.Bytes()); err != nil {
			return nil, err
		}
	}
	compositionRoot, err := compositionCommitter.Commit()
	if err != nil {
		return nil, err
	}
	channel.SendCommitmentHash(compositionRoot)

	z := channel.GetRandomFieldElement(field)
	mask := a.Mask()
	oodMaskValues := make([]*core.FieldElement, len(mask))
	shiftedPoints := make([]*core.FieldElement, len(mask))
	traceGen := traceDomain.Generator()
	for i, m := range mask {
		shiftedPoints[i] = z.Mul(traceGen.Exp(big.NewInt(int64(m.View.RowOffset))))
		oodMaskValues[i], err = ldeManager.EvalAtPoint(m.View.Column, shiftedPoints[i])
		if err != nil {
			return nil, err
		}
		channel.SendFieldElement(oodMaskValues[i])
	}
	oodCompositionValue, err := evaluator.EvalAtOodPoint(oodMaskValues, z)
	if err != nil {
		return nil, err
	}
	channel.SendFieldElement(oodCompositionValue)

	deepCoefficients := make([]*core.FieldElement, len(mask)+1)
	for i := range deepCoefficients {
		deepCoefficients[i] = channel.GetRandomFieldElement(field)
	}

	// Re-fetch each mask column's LDE through the cached manager: the FFTs
	// already ran during the commitment phase, so these reads are cache hits.
	maskColumns := make([][]*core.FieldElement, len(mask))
	for i, m := range mask {
		maskColumns[i], err = ldeManager.EvalOnLde(m.View.Column)
		if err != nil {
			return nil, err
		}
	}

	deepEvaluations := make([]*core.FieldElement, ldeDomain.Size())
	points := ldeDomain.Elements()
	for idx, x := range points {
		acc := field.Zero()
		for i := range mask {
			num := maskColumns[i][idx].Sub(oodMaskValues[i])
			denom, err := x.Sub(shiftedPoints[i]).Inv()
			if err != nil {
				return nil, fmt.Errorf("stark: deep quotient denominator vanished at domain index %d: %w", idx, err)
			}
			acc = acc.Add(deepCoefficients[i].Mul(num).Mul(denom))
		}
		num := compositionEvaluations[idx].Sub(oodCompositionValue)
		denom, err := x.Sub(z).Inv()
		if err != nil {
			return nil, fmt.Errorf("stark: deep composition denominator vanished at domain index %d: %w", idx, err)
		}
		acc = acc.Add(deepCoefficients[len(mask)].Mul(num).Mul(denom))
		deepEvaluations[idx] = acc
	}

	friProver := fri.NewProver(channel, params.HashFunction, params.FriStepList, params.LastLayerDegreeBound)
	if err := friProver.Commit(deepEvaluations, ldeDomain); err != nil {
		return nil, err
	}

	nonce := channel.ApplyProofOfWork(params.ProofOfWorkBits)

	queryIndices := make([]int, params.NumQueries)
	friQueries := make([]fri.QueryResult, params.NumQueries)
	queryRows := make([][]*core.FieldElement, params.NumQueries)
	queryPaths := make([][]core.Digest, params.NumQueries)
	var queryAuxRows [][]*core.FieldElement
	var queryAuxPaths [][]core.Digest
	if interaction != nil {
		queryAuxRows = make([][]*core.FieldElement, params.NumQueries)
		queryAuxPaths = make([][]core.Digest, params.NumQueries)
	}
	queryCompositionValues := make([]*core.FieldElement, params.NumQueries)
	queryCompositionPaths := make([][]core.Digest, params.NumQueries)
	for q := 0; q < params.NumQueries; q++ {
		idx, err := channel.GetRandomNumber(uint64(ldeDomain.Size()))
		if err != nil {
			return nil, err
		}
		queryIndices[q] = int(idx)
		fq, err := friProver.Query(int(idx))
		if err != nil {
			return nil, err
		}
		friQueries[q] = fq

		row := make([]*core.FieldElement, a.NumColumns())
		for col := range row {
			row[col] = extendedColumns[col][idx]
		}
		path, err := traceCommitter.Decommit(int(idx))
		if err != nil {
			return nil, err
		}
		queryRows[q] = row
		queryPaths[q] = path

		if interaction != nil {
			auxRow := make([]*core.FieldElement, numAux)
			for j := range auxRow {
				auxRow[j] = extendedColumns[a.NumColumns()+j][idx]
			}
			auxPath, err := auxCommitter.Decommit(int(idx))
			if err != nil {
				return nil, err
			}
			queryAuxRows[q] = auxRow
			queryAuxPaths[q] = auxPath
		}

		compositionPath, err := compositionCommitter.Decommit(int(idx))
		if err != nil {
			return nil, err
		}
		queryCompositionValues[q] = compositionEvaluations[idx]
		queryCompositionPaths[q] = compositionPath
	}

	return &Proof{
		TraceCommitment:       traceRoot,
		AuxCommitment:         auxRoot,
		CompositionCommitment: compositionRoot,
		OodMaskValues:         oodMaskValues,
		OodCompositionValue:   oodCompositionValue,
		FriProof:              friProver.ToProof(friQueries),
		PowNonce:              nonce,
		QueryIndices:          queryIndices,
		QueryTraceRows:        queryRows,
		QueryTracePaths:       queryPaths,
		QueryAuxRows:          queryAuxRows,
		QueryAuxPaths:         queryAuxPaths,
		QueryCompositionValue: queryCompositionValues,
		QueryCompositionPath:  queryCompositionPaths,
	}, nil
}

// checkProofShape rejects structurally incomplete proofs up front, so the
// per-query loops below can index freely — a missing slice entry is a
// too-short proof, not a panic.
func checkProofShape(a air.AIR, params *Parameters, proof *Proof) error {
	if proof == nil || proof.FriProof == nil || proof.OodCompositionValue == nil {
		return fmt.Errorf("stark: proof is missing required sections")
	}
	if len(proof.OodMaskValues) != len(a.Mask()) {
		return fmt.Errorf("stark: proof has %d ood mask values, AIR declares %d", len(proof.OodMaskValues), len(a.Mask()))
	}
	n := params.NumQueries
	if len(proof.QueryIndices) != n || len(proof.QueryTraceRows) != n || len(proof.QueryTracePaths) != n ||
		len(proof.QueryCompositionValue) != n || len(proof.QueryCompositionPath) != n || len(proof.FriProof.Queries) != n {
		return fmt.Errorf("stark: proof does not carry %d query openings", n)
	}
	for q := 0; q < n; q++ {
		if len(proof.QueryTraceRows[q]) != a.NumColumns() {
			return fmt.Errorf("stark: query %d trace row has %d columns, AIR declares %d", q, len(proof.QueryTraceRows[q]), a.NumColumns())
		}
	}
	if interaction := a.Interaction(); interaction != nil {
		if proof.AuxCommitment == nil || len(proof.QueryAuxRows) != n || len(proof.QueryAuxPaths) != n {
			return fmt.Errorf("stark: AIR declares an interaction but the proof has no auxiliary openings")
		}
		for q := 0; q < n; q++ {
			if len(proof.QueryAuxRows[q]) != interaction.NumAuxColumns {
				return fmt.Errorf("stark: query %d auxiliary row has %d columns, AIR declares %d", q, len(proof.QueryAuxRows[q]), interaction.NumAuxColumns)
			}
		}
	}
	return nil
}

// Verify checks a Proof against AIR a, replaying the same channel
// operations Prove performed and checking that decommitted values are
// consistent at every step, per spec.md §4.10's verifier flow.
func Verify(a air.AIR, params *Parameters, seed []byte, proof *Proof) (bool, error) {
	if err := checkProofShape(a, params, proof); err != nil {
		return false, err
	}
	field := a.Field()
	domainLog, err := params.EvaluationDomainLogSize(a)
	if err != nil {
		return false, err
	}
	traceDomain, err := core.NewFftDomain(field, a.TraceLength(), nil, core.NaturalOrder)
	if err != nil {
		return false, err
	}
	ldeDomain, err := core.NewFftDomain(field, 1<<uint(domainLog), field.FromUint64(3), core.NaturalOrder)
	if err != nil {
		return false, err
	}

	channel := utils.NewChannel(params.HashFunction, seed)
	channel.ReceiveCommitmentHash(proof.TraceCommitment)

	interaction := a.Interaction()
	if interaction != nil {
		challenges := make([]*core.FieldElement, interaction.NumChallenges)
		for i := range challenges {
			challenges[i] = channel.GetRandomFieldElement(field)
		}
		if interaction.BindChallenges != nil {
			interaction.BindChallenges(challenges)
		}
		channel.ReceiveCommitmentHash(proof.AuxCommitment)
	}

	randomCoefficients := make([]*core.FieldElement, a.NumRandomCoefficients())
	for i := range randomCoefficients {
		randomCoefficients[i] = channel.GetRandomFieldElement(field)
	}
	evaluator, err := composition.NewEvaluator(a, randomCoefficients)
	if err != nil {
		return false, err
	}

	channel.ReceiveCommitmentHash(proof.CompositionCommitment)

	z := channel.GetRandomFieldElement(field)
	mask := a.Mask()
	traceGen := traceDomain.Generator()
	shiftedPoints := make([]*core.FieldElement, len(mask))
	for i, m := range mask {
		shiftedPoints[i] = z.Mul(traceGen.Exp(big.NewInt(int64(m.View.RowOffset))))
		channel.ReceiveFieldElement(proof.OodMaskValues[i])
	}
	channel.ReceiveFieldElement(proof.OodCompositionValue)

	expectedComposition, err := evaluator.EvalAtOodPoint(proof.OodMaskValues, z)
	if err != nil {
		return false, err
	}
	if !expectedComposition.Equal(proof.OodCompositionValue) {
		return false, nil
	}

	deepCoefficients := make([]*core.FieldElement, len(mask)+1)
	for i := range deepCoefficients {
		deepCoefficients[i] = channel.GetRandomFieldElement(field)
	}

	friVerifier := fri.NewVerifier(field, channel, params.HashFunction, params.FriStepList, params.LastLayerDegreeBound)
	if err := friVerifier.ReceiveCommitments(proof.FriProof, ldeDomain); err != nil {
		return false, err
	}

	if !channel.VerifyProofOfWork(params.ProofOfWorkBits, proof.PowNonce) {
		return false, nil
	}
	channel.AbsorbProofOfWork(proof.PowNonce)

	traceVerifier := core.NewMerkleTableVerifier(params.HashFunction)
	compositionVerifier := core.NewMerkleTableVerifier(params.HashFunction)
	points := ldeDomain.Elements()

	for q := 0; q < params.NumQueries; q++ {
		idx, err := channel.GetRandomNumber(uint64(ldeDomain.Size()))
		if err != nil {
			return false, err
		}
		if int(idx) != proof.QueryIndices[q] {
			return false, fmt.Errorf("stark: query %d index mismatch: channel drew %d, proof has %d", q, idx, proof.QueryIndices[q])
		}

		if !traceVerifier.Verify(proof.TraceCommitment, int(idx), rowBytes(proof.QueryTraceRows[q]), proof.QueryTracePaths[q]) {
			return false, nil
		}
		combinedRow := proof.QueryTraceRows[q]
		if interaction != nil {
			if !traceVerifier.Verify(proof.AuxCommitment, int(idx), rowBytes(proof.QueryAuxRows[q]), proof.QueryAuxPaths[q]) {
				return false, nil
			}
			combinedRow = append(append([]*core.FieldElement(nil), combinedRow...), proof.QueryAuxRows[q]...)
		}
		if !compositionVerifier.Verify(proof.CompositionCommitment, int(idx), proof.QueryCompositionValue[q].Bytes(), proof.QueryCompositionPath[q]) {
			return false, nil
		}

		if !friVerifier.VerifyQuery(proof.FriProof.Queries[q]) {
			return false, nil
		}

		x := points[idx]
		acc := field.Zero()
		for i, m := range mask {
			if m.View.Column >= len(combinedRow) {
				return false, fmt.Errorf("stark: mask entry %d reads column %d, beyond the decommitted rows", i, m.View.Column)
			}
			num := combinedRow[m.View.Column].Sub(proof.OodMaskValues[i])
			denom, err := x.Sub(shiftedPoints[i]).Inv()
			if err != nil {
				return false, err
			}
			acc = acc.Add(deepCoefficients[i].Mul(num).Mul(denom))
		}

		// The composition value at this query point comes straight from its
		// own table commitment (decommitted and verified above), not from
		// re-evaluating constraints against the single decommitted trace
		// row — a transition constraint's mask can read neighbor rows that
		// a lone row can never reconstruct.
		numComp := proof.QueryCompositionValue[q].Sub(proof.OodCompositionValue)
		denomComp, err := x.Sub(z).Inv()
		if err != nil {
			return false, err
		}
		deepValue := acc.Add(deepCoefficients[len(mask)].Mul(numComp).Mul(denomComp))

		opening := proof.FriProof.Queries[q].Openings[0]
		found := false
		for k, oidx := range opening.Indices {
			if oidx == int(idx) {
				found = true
				if !deepValue.Equal(opening.Values[k]) {
					return false, nil
				}
				break
			}
		}
		if !found {
			return false, fmt.Errorf("stark: query %d index %d not found in FRI layer-0 opening", q, idx)
		}
	}

	return friVerifier.State() == fri.StateAccept, nil
}
