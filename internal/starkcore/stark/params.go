// Package stark wires the field, FFT/LDE, composition, channel and FRI
// packages together into the STARK orchestrator: Prove and Verify, per
// spec.md §4.10. Grounded on the example prover's protocols/stark.go
// (STARKParameters, domain derivation) and protocols/prover.go /
// protocols/verifier.go's prover/verifier split.
package stark

import (
	"fmt"

	"github.com/lucenta/starkcore/internal/starkcore/air"
	"github.com/lucenta/starkcore/internal/starkcore/core"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// Parameters bundles everything a proving/verifying session needs beyond
// the AIR itself: the blowup factor, the FRI folding schedule, query count
// and grinding difficulty. Grounded on protocols/stark.go's
// STARKParameters, without that file's hardcoded quadratic-constraint-degree
// assumption (MaxDegree there assumes every constraint has degree 2). The
// FRI schedule is measured against the trace length; the AIR's
// CompositionDegreeBound is not consulted, and the composition polynomial
// is not split into several lower-degree parts.
type Parameters struct {
	BlowupFactorLog2     int
	FriStepList          []int
	LastLayerDegreeBound int
	NumQueries           int
	ProofOfWorkBits      int
	HashFunction         core.HashFunction
}

// ParametersFromConfig builds Parameters from a utils.Config.
func ParametersFromConfig(cfg *utils.Config) (*Parameters, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hf, err := core.HashByName(cfg.HashFunction)
	if err != nil {
		return nil, err
	}
	return &Parameters{
		BlowupFactorLog2:     cfg.BlowupFactorLog2,
		FriStepList:          append([]int(nil), cfg.FriStepList...),
		LastLayerDegreeBound: cfg.LastLayerDegreeBound,
		NumQueries:           cfg.NumQueries,
		ProofOfWorkBits:      cfg.ProofOfWorkBits,
		HashFunction:         hf,
	}, nil
}

// EvaluationDomainLogSize returns log2 of the LDE domain size for the given
// AIR: the trace length's log2 plus the blowup factor.
func (p *Parameters) EvaluationDomainLogSize(a air.AIR) (int, error) {
	traceLog := utils.Log2(a.TraceLength())
	if traceLog < 0 {
		return 0, fmt.Errorf("stark: AIR trace length %d is not a power of two", a.TraceLength())
	}
	return traceLog + p.BlowupFactorLog2, nil
}

// TotalFriReduction sums the step list, the number of times the evaluation
// domain's log-size is halved across the whole FRI protocol.
func (p *Parameters) TotalFriReduction() int {
	total := 0
	for _, s := range p.FriStepList {
		total += s
	}
	return total
}

// Validate checks the parameters are internally consistent with the AIR
// they'll be used to prove: every fri_step in {1,2,3,4}, and the step list's
// total reduction exactly accounts for the gap between the DEEP polynomial's
// degree bound (the trace length) and the last layer's bound — so the final
// layer keeps the full blowup factor and its degree check has teeth.
func (p *Parameters) Validate(a air.AIR) error {
	if _, err := p.EvaluationDomainLogSize(a); err != nil {
		return err
	}
	if len(p.FriStepList) == 0 {
		return fmt.Errorf("stark: FriStepList must not be empty")
	}
	for i, step := range p.FriStepList {
		if step < 1 || step > 4 {
			return fmt.Errorf("stark: FriStepList[%d]=%d is outside {1,2,3,4}", i, step)
		}
	}
	if p.LastLayerDegreeBound <= 0 {
		return fmt.Errorf("stark: LastLayerDegreeBound must be positive")
	}
	traceLog := utils.Log2(a.TraceLength())
	boundLog := utils.Log2(utils.NextPowerOfTwo(p.LastLayerDegreeBound))
	if p.TotalFriReduction()+boundLog != traceLog {
		return fmt.Errorf("stark: FRI step list sum %d plus last-layer degree log %d must equal the trace length log %d",
			p.TotalFriReduction(), boundLog, traceLog)
	}
	if p.NumQueries <= 0 {
		return fmt.Errorf("stark: NumQueries must be positive")
	}
	return nil
}
