package fri

import (
	"fmt"
	"math/big"

	"github.com/lucenta/starkcore/internal/starkcore/core"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// QueryKind distinguishes the two things a FRI query checks, per spec.md
// §4.9: an integrity query recomputes an entire fold group from a layer's
// raw coset values and checks the recomputed value lands where the next
// layer claims; a data query (a fold-by-2 round after the first) opens and
// folds its group the same way, but omits the authentication path of the
// one position a prior round's fold check already pins, decommitting only
// its sibling.
type QueryKind int

const (
	IntegrityQuery QueryKind = iota
	DataQuery
)

// LayerOpening is what one round of a FRI query reveals: every value in the
// fold group the query index falls into for that round, each with its own
// Merkle decommitment path against that round's committed root, except the
// pinned position of a data query, whose path is omitted (nil).
type LayerOpening struct {
	Kind    QueryKind
	Indices []int
	Values  []*core.FieldElement
	Paths   [][]core.Digest
}

// QueryResult is one full query's openings across every FRI round, plus the
// original query index.
type QueryResult struct {
	Index    int
	Openings []LayerOpening
}

// Query opens the query index idx against every committed layer. The first
// round's opening is always an integrity query (the verifier has no prior
// pinned value yet); every subsequent round is classified as an integrity
// query if that round folds by more than 2 (fri_step > 1 groups more than a
// pair, so the whole group must be re-derived) and a data query otherwise
// (fri_step == 1 means the paired value was already produced, and checked,
// by the previous round's fold). In a data query, the pinned position's
// authentication path is omitted entirely — the previous round's fold
// equality already fixes that value, so only the sibling is decommitted.
func (p *Prover) Query(idx int) (QueryResult, error) {
	result := QueryResult{Index: idx}
	cur := idx
	for r, layer := range p.layers[:len(p.layers)-1] {
		step := p.stepList[r]
		groupSize := 1 << uint(step)
		n := len(layer.Evaluations)
		sub := n / groupSize
		base := cur % sub

		kind := IntegrityQuery
		if step == 1 && r > 0 {
			kind = DataQuery
		}
		pinned := cur / sub

		indices := make([]int, groupSize)
		values := make([]*core.FieldElement, groupSize)
		paths := make([][]core.Digest, groupSize)
		for k := 0; k < groupSize; k++ {
			indices[k] = base + k*sub
			values[k] = layer.Evaluations[indices[k]]
			if kind == DataQuery && k == pinned {
				continue
			}
			path, err := layer.committer.Decommit(indices[k])
			if err != nil {
				return QueryResult{}, fmt.Errorf("fri: decommit layer %d index %d: %w", r, indices[k], err)
			}
			paths[k] = path
		}

		result.Openings = append(result.Openings, LayerOpening{Kind: kind, Indices: indices, Values: values, Paths: paths})
		cur = base
	}
	return result, nil
}

// VerifierState names the steps of the FRI verifier's state machine, per
// spec.md §4.9's diagram: commitments and the final polynomial are read and
// absorbed into the transcript (mirroring the prover's channel operations)
// before any query is checked, and only once every query accepts does the
// verifier accept the proof as a whole.
type VerifierState int

const (
	StateInit VerifierState = iota
	StateCommitted
	StateChallenged
	StateLastLayer
	StateQuery
	StateAccept
	StateReject
)

// Verifier replays a FRI proof's transcript and checks its query openings.
type Verifier struct {
	field                *core.Field
	channel              *utils.Channel
	hashFn               core.HashFunction
	stepList             []int
	lastLayerDegreeBound int
	state                VerifierState

	challenges  [][]*core.FieldElement // per round, the challenges drawn for each of that round's folds
	domains     []*core.FftDomain      // per layer, starting domain
	commitments []core.Digest
	finalPoly   []*core.FieldElement
}

// NewVerifier builds a FRI verifier matching a Prover built with the same
// channel construction, hash function, step list and degree bound (the
// channel itself must be a fresh one seeded identically to the prover's, so
// replaying Commit's Send calls as ReceiveCommitmentHash/ReceiveFieldElement
// reproduces the same challenges).
func NewVerifier(field *core.Field, channel *utils.Channel, hashFn core.HashFunction, stepList []int, lastLayerDegreeBound int) *Verifier {
	return &Verifier{field: field, channel: channel, hashFn: hashFn, stepList: stepList, lastLayerDegreeBound: lastLayerDegreeBound, state: StateInit}
}

// ReceiveCommitments replays the commit phase: absorbs each layer
// commitment and the final polynomial's coefficients into the channel in
// the same order the prover sent them, drawing the same folding challenges
// along the way, and records the domain chain so Query/Verify can check
// fold consistency.
func (v *Verifier) ReceiveCommitments(proof *Proof, initialDomain *core.FftDomain) error {
	if v.state != StateInit {
		return fmt.Errorf("fri: ReceiveCommitments called out of order (state=%d)", v.state)
	}
	if len(proof.LayerCommitments) != len(v.stepList)+1 {
		return fmt.Errorf("fri: expected %d layer commitments, got %d", len(v.stepList)+1, len(proof.LayerCommitments))
	}

	domain := initialDomain
	v.domains = []*core.FftDomain{domain}
	v.commitments = proof.LayerCommitments
	v.channel.ReceiveCommitmentHash(proof.LayerCommitments[0])

	for i, step := range v.stepList {
		roundChallenges := make([]*core.FieldElement, step)
		for s := 0; s < step; s++ {
			roundChallenges[s] = v.channel.GetRandomFieldElement(v.field)
			var err error
			domain, err = domain.Halve()
			if err != nil {
				return err
			}
		}
		v.challenges = append(v.challenges, roundChallenges)
		v.domains = append(v.domains, domain)
		v.channel.ReceiveCommitmentHash(proof.LayerCommitments[i+1])
	}
	v.state = StateCommitted

	for _, c := range proof.FinalPolynomial {
		v.channel.ReceiveFieldElement(c)
	}
	v.finalPoly = proof.FinalPolynomial
	if len(v.finalPoly) > v.lastLayerDegreeBound {
		v.state = StateReject
		return fmt.Errorf("fri: final polynomial degree %d is not below bound %d", len(v.finalPoly)-1, v.lastLayerDegreeBound)
	}
	v.state = StateLastLayer
	return nil
}

// VerifyQuery checks one query's openings: every layer's table-commitment
// paths must verify against that layer's committed root, and every fold
// group, integrity or data, must fold (via the same formula the prover used, with the
// challenges this verifier itself drew) to the value the next round's
// opening records at the corresponding index.
func (v *Verifier) VerifyQuery(q QueryResult) bool {
	v.state = StateQuery
	if len(q.Openings) != len(v.stepList) {
		v.state = StateReject
		return false
	}
	verifier := core.NewMerkleTableVerifier(v.hashFn)

	cur := q.Index
	for r, opening := range q.Openings {
		root := v.commitments[r]
		step := v.stepList[r]
		groupSize := 1 << uint(step)
		domain := v.domains[r]
		sub := domain.Size() / groupSize
		base := cur % sub

		// The opening must cover exactly the fold group the query index
		// falls into: full-layer indices base, base+sub, ..., base+(2^step-1)*sub.
		if len(opening.Indices) != groupSize || len(opening.Values) != groupSize || len(opening.Paths) != groupSize {
			v.state = StateReject
			return false
		}
		expectedKind := IntegrityQuery
		if step == 1 && r > 0 {
			expectedKind = DataQuery
		}
		if opening.Kind != expectedKind {
			v.state = StateReject
			return false
		}
		pinned := cur / sub
		for k, idx := range opening.Indices {
			if idx != base+k*sub {
				v.state = StateReject
				return false
			}
			// A data query's pinned position needs no path: its value was
			// already fixed by the previous round's fold-equality check.
			if opening.Kind == DataQuery && k == pinned {
				continue
			}
			if !verifier.Verify(root, idx, opening.Values[k].Bytes(), opening.Paths[k]) {
				v.state = StateReject
				return false
			}
		}

		folded, err := foldGroup(opening.Values, domain, base, sub, v.challenges[r])
		if err != nil {
			v.state = StateReject
			return false
		}

		// The folded value lands at full-layer index `base` of the next
		// layer; locate it inside the next opening's group (or, at the last
		// layer, evaluate the final polynomial at that index's point).
		var expected *core.FieldElement
		if r+1 < len(q.Openings) {
			nextDomain := v.domains[r+1]
			nextSub := nextDomain.Size() / (1 << uint(v.stepList[r+1]))
			expected = q.Openings[r+1].Values[base/nextSub]
		} else {
			last := v.domains[len(v.domains)-1]
			expected = evalFinalPolynomial(v.finalPoly, last.Elements()[base])
		}
		if !folded.Equal(expected) {
			v.state = StateReject
			return false
		}
		cur = base
	}
	v.state = StateAccept
	return true
}

// foldGroup folds the 2^step values sitting at full-layer indices
// base+k*sub down to the single next-layer value, one halving per
// challenge. At halving s the value at group position k corresponds to the
// point offset_s * g_s^(base+k*sub) of the s-times-halved domain, which is
// the x the fold formula divides by.
func foldGroup(group []*core.FieldElement, domain *core.FftDomain, base, sub int, challenges []*core.FieldElement) (*core.FieldElement, error) {
	field := domain.Generator().Field()
	twoInv, err := field.FromUint64(2).Inv()
	if err != nil {
		return nil, err
	}
	values := append([]*core.FieldElement(nil), group...)
	for _, challenge := range challenges {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("fri: cannot fold group of odd size %d", len(values))
		}
		half := len(values) / 2
		gen := domain.Generator()
		next := make([]*core.FieldElement, half)
		for k := 0; k < half; k++ {
			x := domain.Offset().Mul(gen.Exp(big.NewInt(int64(base + k*sub))))
			xInv, err := x.Inv()
			if err != nil {
				return nil, err
			}
			even := values[k].Add(values[k+half]).Mul(twoInv)
			odd := values[k].Sub(values[k+half]).Mul(twoInv).Mul(xInv)
			next[k] = even.Add(challenge.Mul(odd))
		}
		values = next
		domain, err = domain.Halve()
		if err != nil {
			return nil, err
		}
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("fri: fold group did not reduce to a single value (len=%d)", len(values))
	}
	return values[0], nil
}

func evalFinalPolynomial(coeffs []*core.FieldElement, at *core.FieldElement) *core.FieldElement {
	if len(coeffs) == 0 {
		return at.Field().Zero()
	}
	acc := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(at).Add(coeffs[i])
	}
	return acc
}

// State returns the verifier's current state-machine position.
func (v *Verifier) State() VerifierState { return v.state }
