package channel

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Params bundles the fixed §6 physical-layer and Gilbert–Elliot constants.
// DefaultParams reproduces the spec's baseline table exactly; the sweep's
// optional YAML config (internal/sweepconfig) may override any field for
// sensitivity experiments beyond the baseline grid.
type Params struct {
	BitRateBps      float64 // R, bits per second
	PropagationFWD  time.Duration
	PropagationREV  time.Duration
	ProcessingDelay time.Duration

	// Gilbert–Elliot bit-error-rate and transition-probability parameters.
	PGood          float64 // p_G, bit error rate in GOOD state
	PBad           float64 // p_B, bit error rate in BAD state
	TransGoodToBad float64 // p(G->B)
	TransBadToGood float64 // p(B->G)
}

// DefaultParams returns the §6 baseline configuration.
func DefaultParams() Params {
	return Params{
		BitRateBps:      10e6,
		PropagationFWD:  40 * time.Millisecond,
		PropagationREV:  10 * time.Millisecond,
		ProcessingDelay: 2 * time.Millisecond,
		PGood:           1e-6,
		PBad:            5e-3,
		TransGoodToBad:  0.002,
		TransBadToGood:  0.05,
	}
}

// Validate returns a non-nil error describing every field that violates a
// §7.1 configuration constraint: the bit rate and the three delays must be
// positive, the bit error rates must lie in [0,1] (zero is allowed, giving a
// lossless channel), and the transition probabilities must lie in (0,1].
// Multiple violations are aggregated rather than reported one at a time.
func (p Params) Validate() error {
	var result *multierror.Error
	if p.BitRateBps <= 0 {
		result = multierror.Append(result, errors.New("channel: BitRateBps must be positive"))
	}
	if p.PropagationFWD <= 0 {
		result = multierror.Append(result, errors.New("channel: PropagationFWD must be positive"))
	}
	if p.PropagationREV <= 0 {
		result = multierror.Append(result, errors.New("channel: PropagationREV must be positive"))
	}
	if p.ProcessingDelay <= 0 {
		result = multierror.Append(result, errors.New("channel: ProcessingDelay must be positive"))
	}
	if p.PGood < 0 || p.PGood > 1 {
		result = multierror.Append(result, errors.New("channel: PGood must be in [0,1]"))
	}
	if p.PBad < 0 || p.PBad > 1 {
		result = multierror.Append(result, errors.New("channel: PBad must be in [0,1]"))
	}
	if p.TransGoodToBad <= 0 || p.TransGoodToBad > 1 {
		result = multierror.Append(result, errors.New("channel: TransGoodToBad must be in (0,1]"))
	}
	if p.TransBadToGood <= 0 || p.TransBadToGood > 1 {
		result = multierror.Append(result, errors.New("channel: TransBadToGood must be in (0,1]"))
	}
	return result.ErrorOrNil()
}
