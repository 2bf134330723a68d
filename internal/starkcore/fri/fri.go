// Package fri implements the Fast Reed-Solomon IOP of Proximity: iterated
// folding of an evaluation vector by a per-round factor ("fri_step", in
// {1,2,3,4}), a table commitment per round, and a query phase that checks
// folding consistency without revealing the full evaluation vectors.
// Grounded on the example prover's protocols/fri.go (layer struct, fold
// recurrence) and protocols/fri_query.go (query/terminal-reconstruction
// shape), generalized from the teacher's fixed fold-by-2-only, no-real-
// decommitment version to spec.md §4.9's fri_step-ary folding with genuine
// per-layer table commitments and query classification.
package fri

import (
	"fmt"

	"github.com/lucenta/starkcore/internal/starkcore/core"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// Layer holds one round's evaluation vector, the domain it was evaluated
// over, and the table commitment fixing it.
type Layer struct {
	Domain      *core.FftDomain
	Evaluations []*core.FieldElement
	Commitment  core.Digest
	committer   core.TableCommitter
}

// Proof is the data a FRI prover sends: one commitment per layer, the last
// layer included, plus the last layer's raw coefficients (which the
// verifier degree-checks and evaluates directly rather than opening that
// layer's commitment) and the query openings.
type Proof struct {
	LayerCommitments []core.Digest
	FinalPolynomial  []*core.FieldElement
	Queries          []QueryResult
}

// Prover runs the commit phase (and, via Query, the query phase) of FRI.
type Prover struct {
	field                *core.Field
	channel              *utils.Channel
	hashFn               core.HashFunction
	stepList             []int
	lastLayerDegreeBound int
	layers               []*Layer
	finalPolynomial      []*core.FieldElement
}

// NewProver builds a FRI prover. stepList gives the fold factor (as a
// power-of-two exponent, so 2 means "fold by 4") for each round; their sum
// must account for the full reduction from the initial domain's log-size
// down to the final layer's.
func NewProver(channel *utils.Channel, hashFn core.HashFunction, stepList []int, lastLayerDegreeBound int) *Prover {
	return &Prover{channel: channel, hashFn: hashFn, stepList: stepList, lastLayerDegreeBound: lastLayerDegreeBound}
}

// Commit runs the FRI commit phase over an initial evaluation vector
// (typically the composition polynomial evaluated on the LDE domain),
// committing one table per round and drawing the round's folding
// challenges from the Fiat-Shamir channel after each commitment — one
// independent challenge per halving, so a fold-by-2^s round draws s of
// them rather than using powers of a single challenge — exactly the
// commit/challenge alternation a Fiat-Shamir FRI transcript requires.
func (p *Prover) Commit(initial []*core.FieldElement, domain *core.FftDomain) error {
	p.field = domain.Generator().Field()
	layer, err := p.commitLayer(domain, initial)
	if err != nil {
		return err
	}
	p.layers = []*Layer{layer}

	cur := layer
	for _, step := range p.stepList {
		evals, dom := cur.Evaluations, cur.Domain
		for s := 0; s < step; s++ {
			challenge := p.channel.GetRandomFieldElement(p.field)
			evals, dom, err = foldOnce(evals, dom, challenge)
			if err != nil {
				return err
			}
		}
		next, err := p.commitLayer(dom, evals)
		if err != nil {
			return err
		}
		p.layers = append(p.layers, next)
		cur = next
	}

	coeffs, err := core.IFFT(cur.Evaluations, cur.Domain)
	if err != nil {
		return fmt.Errorf("fri: interpolate final layer: %w", err)
	}
	// The final layer must interpolate to degree strictly below the bound,
	// so at most lastLayerDegreeBound coefficients survive.
	if p.lastLayerDegreeBound < len(coeffs) {
		for _, c := range coeffs[p.lastLayerDegreeBound:] {
			if !c.IsZero() {
				return fmt.Errorf("fri: final layer exceeds declared degree bound %d", p.lastLayerDegreeBound)
			}
		}
		coeffs = coeffs[:p.lastLayerDegreeBound]
	}
	p.finalPolynomial = coeffs
	for _, c := range coeffs {
		p.channel.SendFieldElement(c)
	}
	return nil
}

func (p *Prover) commitLayer(domain *core.FftDomain, evals []*core.FieldElement) (*Layer, error) {
	committer := core.NewMerkleTableCommitter(p.hashFn)
	if err := committer.StartAdd(len(evals)); err != nil {
		return nil, err
	}
	for i, e := range evals {
		if err := committer.Add(i, e.Bytes()); err != nil {
			return nil, err
		}
	}
	root, err := committer.Commit()
	if err != nil {
		return nil, err
	}
	p.channel.SendCommitmentHash(root)
	return &Layer{Domain: domain, Evaluations: evals, Commitment: root, committer: committer}, nil
}

// foldOnce applies the degree-halving fold
//
//	f'(y) = (f(x)+f(-x))/2 + challenge*(f(x)-f(-x))/(2x),  y = x^2
//
// pairing evaluation index i with i+size/2 (the point n/2 steps around the
// coset from i, which is exactly -x when x is at index i — the subgroup's
// generator to the power size/2 has order 2, so it equals -1). Grounded on
// protocols/fri.go's foldFunction recurrence.
func foldOnce(evals []*core.FieldElement, domain *core.FftDomain, challenge *core.FieldElement) ([]*core.FieldElement, *core.FftDomain, error) {
	n := len(evals)
	if n%2 != 0 {
		return nil, nil, fmt.Errorf("fri: cannot fold an odd-length evaluation vector (len=%d)", n)
	}
	field := challenge.Field()
	half := n / 2
	two := field.FromUint64(2)
	twoInv, err := two.Inv()
	if err != nil {
		return nil, nil, err
	}

	points := domain.Elements()
	next := make([]*core.FieldElement, half)
	for i := 0; i < half; i++ {
		x := points[i]
		xInv, err := x.Inv()
		if err != nil {
			return nil, nil, err
		}
		even := evals[i].Add(evals[i+half]).Mul(twoInv)
		odd := evals[i].Sub(evals[i+half]).Mul(twoInv).Mul(xInv)
		next[i] = even.Add(challenge.Mul(odd))
	}

	nextDomain, err := domain.Halve()
	if err != nil {
		return nil, nil, err
	}
	return next, nextDomain, nil
}

// Layers exposes the committed layers, for a caller (the STARK orchestrator)
// that needs to run the query phase via Query.
func (p *Prover) Layers() []*Layer { return p.layers }

// FinalPolynomial returns the coefficients of the last FRI layer.
func (p *Prover) FinalPolynomial() []*core.FieldElement { return p.finalPolynomial }

// ToProof packages the prover's committed layers, final polynomial and a set
// of query responses into a Proof.
func (p *Prover) ToProof(queries []QueryResult) *Proof {
	commitments := make([]core.Digest, len(p.layers))
	for i, l := range p.layers {
		commitments[i] = l.Commitment
	}
	return &Proof{LayerCommitments: commitments, FinalPolynomial: p.finalPolynomial, Queries: queries}
}
