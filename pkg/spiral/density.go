package spiral

import (
	"fmt"
	"math"
)

// Density profiles supported by the generator. A variable-density spiral
// samples the center of k-space at the Nyquist rate and relaxes the radial
// sampling density towards the periphery, shortening the readout at the cost
// of aliasing energy from high spatial frequencies.
type DensityType int

const (
	// DensityUniform is a plain Archimedean spiral, Nyquist-sampled at
	// every radius.
	DensityUniform DensityType = iota

	// DensityLinear ramps the density linearly between the two cutoffs.
	DensityLinear

	// DensityQuadratic ramps the density quadratically between the two
	// cutoffs, keeping the inner region closer to fully sampled.
	DensityQuadratic

	// DensityHanning ramps the density along a Hann window between the
	// two cutoffs for a smooth transition at both ends.
	DensityHanning
)

// ParseDensityType maps a configuration string to a DensityType.
func ParseDensityType(s string) (DensityType, error) {
	switch s {
	case "", "uniform":
		return DensityUniform, nil
	case "linear":
		return DensityLinear, nil
	case "quadratic":
		return DensityQuadratic, nil
	case "hanning":
		return DensityHanning, nil
	default:
		return 0, fmt.Errorf("unknown density type %q", s)
	}
}

// DensityParams describes a variable-density profile. Radii are expressed as
// fractions of the target k-space radius. The zero value selects a uniform
// density and ignores the remaining fields.
type DensityParams struct {
	// Type selects the transition profile between the cutoffs.
	Type DensityType

	// InnerCutoff is the normalized radius up to which the spiral stays
	// fully sampled. Must satisfy 0 <= InnerCutoff < OuterCutoff.
	InnerCutoff float64

	// OuterCutoff is the normalized radius beyond which the density stays
	// at OuterDensity. Must satisfy InnerCutoff < OuterCutoff <= 1.
	OuterCutoff float64

	// OuterDensity is the sampling density relative to Nyquist beyond the
	// outer cutoff, in (0, 1].
	OuterDensity float64
}

func (d DensityParams) validate() error {
	if d.Type == DensityUniform {
		return nil
	}
	if d.InnerCutoff < 0 || d.OuterCutoff > 1 || !(d.InnerCutoff < d.OuterCutoff) {
		return fmt.Errorf("density cutoffs must satisfy 0 <= inner < outer <= 1, got %g and %g: %w",
			d.InnerCutoff, d.OuterCutoff, ErrNumericalFailure)
	}
	if !(d.OuterDensity > 0) || d.OuterDensity > 1 {
		return fmt.Errorf("outer density must be in (0, 1], got %g: %w",
			d.OuterDensity, ErrNumericalFailure)
	}
	return nil
}

// factor returns the sampling density relative to Nyquist at the normalized
// radius rNorm in [0, 1].
func (d DensityParams) factor(rNorm float64) float64 {
	if d.Type == DensityUniform {
		return 1
	}
	if rNorm <= d.InnerCutoff {
		return 1
	}
	if rNorm >= d.OuterCutoff {
		return d.OuterDensity
	}

	t := (rNorm - d.InnerCutoff) / (d.OuterCutoff - d.InnerCutoff)
	switch d.Type {
	case DensityLinear:
		// fall through to the linear ramp below
	case DensityQuadratic:
		t = t * t
	case DensityHanning:
		t = 0.5 * (1 - math.Cos(math.Pi*t))
	}
	return 1 + (d.OuterDensity-1)*t
}
