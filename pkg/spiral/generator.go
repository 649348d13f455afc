// Package spiral implements gradient-limited spiral k-space trajectory design
// for MRI acquisitions. Given a set of acquisition parameters it integrates a
// two-channel gradient waveform forward in time so that the traced k-space
// path follows an Archimedean (or variable-density) spiral while respecting
// the hardware gradient amplitude and slew-rate limits.
package spiral

import (
	"errors"
	"fmt"
	"math"
)

// MaxWaveformSize is the maximum number of samples a generated waveform may
// contain. Callers that pre-allocate storage for a waveform can size it to
// this bound; generation fails rather than exceed it.
const MaxWaveformSize = 100000

// ErrNumericalFailure is returned when a valid waveform cannot be produced
// under the given constraints: the target k-space radius is unreachable
// within MaxWaveformSize samples, an input violates the parameter contract,
// or the integration produces non-finite values. No partial waveform is
// returned alongside it.
var ErrNumericalFailure = errors.New("numerical failure")

// Sample is one time step of the gradient waveform, in mT/m per channel.
type Sample struct {
	Gx float32
	Gy float32
}

// Waveform is a time-ordered sequence of gradient samples. The k-space
// trajectory is recovered by integrating the samples over time.
type Waveform []Sample

// Params holds the acquisition parameters for one waveform design.
// A Params value is read-only during generation; the generator keeps no
// state between calls, so distinct invocations never interact.
type Params struct {
	// BaseResolution is the number of image samples across the field of
	// view. Together with FieldOfView it sets the target k-space radius
	// via the Nyquist criterion.
	BaseResolution int

	// SpiralArms is the number of interleaves the acquisition will use.
	// More arms shorten each interleave because adjacent spiral turns of
	// a single arm may be spaced further apart.
	SpiralArms int

	// FieldOfView is the imaging field of view in mm.
	FieldOfView float64

	// MaxGradAmpl is the gradient amplitude limit in mT/m.
	MaxGradAmpl float64

	// MinRiseTime is the minimum time in seconds for the gradient to ramp
	// from zero to MaxGradAmpl. The slew-rate limit is
	// MaxGradAmpl/MinRiseTime.
	MinRiseTime float64

	// DwellTime is the readout sampling interval in seconds.
	DwellTime float64

	// ReadoutOS is the readout oversampling factor (>= 1). The waveform is
	// designed on the oversampled grid, i.e. with step DwellTime/ReadoutOS.
	ReadoutOS float64

	// GradientDelay is the system gradient delay in seconds. The returned
	// waveform is time-shifted by this amount to compensate for the lag of
	// the physical gradient chain. It may be negative.
	GradientDelay float64

	// LarmorConst is the gyromagnetic ratio of the target nucleus in
	// Hz/mT (42577.0 for protons). It converts gradient amplitude to
	// k-space velocity.
	LarmorConst float64

	// Density selects the radial sampling density profile. The zero value
	// is a uniform-density (plain Archimedean) spiral.
	Density DensityParams
}

// Validate checks the parameter contract described on each field.
func (p *Params) Validate() error {
	if p.BaseResolution < 1 {
		return fmt.Errorf("base resolution must be a positive integer, got %d: %w",
			p.BaseResolution, ErrNumericalFailure)
	}
	if p.SpiralArms < 1 {
		return fmt.Errorf("spiral arms must be a positive integer, got %d: %w",
			p.SpiralArms, ErrNumericalFailure)
	}
	if !(p.FieldOfView > 0) {
		return fmt.Errorf("field of view must be positive, got %g: %w",
			p.FieldOfView, ErrNumericalFailure)
	}
	if !(p.MaxGradAmpl > 0) {
		return fmt.Errorf("max gradient amplitude must be positive, got %g: %w",
			p.MaxGradAmpl, ErrNumericalFailure)
	}
	if !(p.MinRiseTime > 0) {
		return fmt.Errorf("min rise time must be positive, got %g: %w",
			p.MinRiseTime, ErrNumericalFailure)
	}
	if !(p.DwellTime > 0) {
		return fmt.Errorf("dwell time must be positive, got %g: %w",
			p.DwellTime, ErrNumericalFailure)
	}
	if !(p.ReadoutOS >= 1) {
		return fmt.Errorf("readout oversampling must be >= 1, got %g: %w",
			p.ReadoutOS, ErrNumericalFailure)
	}
	if math.IsNaN(p.GradientDelay) || math.IsInf(p.GradientDelay, 0) {
		return fmt.Errorf("gradient delay must be finite, got %g: %w",
			p.GradientDelay, ErrNumericalFailure)
	}
	if !(p.LarmorConst > 0) {
		return fmt.Errorf("larmor constant must be positive, got %g: %w",
			p.LarmorConst, ErrNumericalFailure)
	}
	if err := p.Density.validate(); err != nil {
		return err
	}
	return nil
}

// constraintSlack is the relative headroom allowed when testing a candidate
// step against the amplitude and slew limits, so that steps sitting exactly
// on a limit are not rejected by rounding.
const constraintSlack = 1e-9

// advanceIters is the number of bisection iterations used to find the
// largest feasible angular advance per sample. A fixed count keeps the
// design bit-for-bit deterministic.
const advanceIters = 60

// generator carries the quantities derived from Params that the integration
// loop needs at every step. One generator serves exactly one call.
type generator struct {
	params Params

	// dt is the integration step in seconds (DwellTime/ReadoutOS).
	dt float64

	// gamma converts gradient amplitude in mT/m to k-space velocity in
	// 1/(mm*s): dk/dt = gamma * G.
	gamma float64

	// kmax is the target k-space radius in 1/mm.
	kmax float64

	// slewMax is the slew-rate limit in mT/m/s.
	slewMax float64

	// pitch0 is the Nyquist radial pitch dr/dtheta of the fully sampled
	// spiral, in 1/mm per radian.
	pitch0 float64
}

func newGenerator(p Params) *generator {
	return &generator{
		params:  p,
		dt:      p.DwellTime / p.ReadoutOS,
		gamma:   p.LarmorConst * 1e-3,
		kmax:    float64(p.BaseResolution) / (2 * p.FieldOfView),
		slewMax: p.MaxGradAmpl / p.MinRiseTime,
		pitch0:  float64(p.SpiralArms) / (2 * math.Pi * p.FieldOfView),
	}
}

// Generate designs a spiral gradient waveform for the given acquisition
// parameters. It is a pure function of its inputs: identical parameters
// produce identical waveforms, and concurrent calls need no coordination.
// On failure the returned waveform is nil and the error wraps
// ErrNumericalFailure.
func Generate(p Params) (Waveform, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := newGenerator(p)
	w, err := g.integrate()
	if err != nil {
		return nil, err
	}

	if p.GradientDelay != 0 {
		w = applyDelay(w, p.GradientDelay, g.dt)
	}
	return w, nil
}

// integrate steps the waveform forward in time until the spiral reaches the
// target k-space radius, recording one gradient sample per step.
func (g *generator) integrate() (Waveform, error) {
	var (
		theta, r       float64 // angular position and radius on the curve
		kx, ky         float64 // current k-space position, 1/mm
		gxPrev, gyPrev float64 // gradient at the previous step, mT/m
	)

	w := make(Waveform, 0, 4096)
	for r < g.kmax {
		if len(w) >= MaxWaveformSize {
			return nil, fmt.Errorf(
				"target k-space radius %.4g 1/mm not reached within %d samples: %w",
				g.kmax, MaxWaveformSize, ErrNumericalFailure)
		}

		dTheta := g.maxAdvance(theta, r, gxPrev, gyPrev)
		if dTheta <= 0 {
			return nil, fmt.Errorf("integration stalled at radius %.4g of %.4g 1/mm: %w",
				r, g.kmax, ErrNumericalFailure)
		}

		theta2 := theta + dTheta
		r2 := r + g.pitch(r)*dTheta
		kx2 := r2 * math.Cos(theta2)
		ky2 := r2 * math.Sin(theta2)
		gx := (kx2 - kx) / (g.gamma * g.dt)
		gy := (ky2 - ky) / (g.gamma * g.dt)

		if !isFinite(gx) || !isFinite(gy) {
			return nil, fmt.Errorf("non-finite gradient at sample %d: %w",
				len(w), ErrNumericalFailure)
		}

		w = append(w, Sample{Gx: float32(gx), Gy: float32(gy)})
		theta, r = theta2, r2
		kx, ky = kx2, ky2
		gxPrev, gyPrev = gx, gy
	}

	if len(w) == 0 {
		return nil, fmt.Errorf("empty waveform for k-space radius %.4g 1/mm: %w",
			g.kmax, ErrNumericalFailure)
	}
	return w, nil
}

// pitch is the local radial pitch dr/dtheta at radius r. A density factor
// below one (undersampled outer region) widens the pitch.
func (g *generator) pitch(r float64) float64 {
	return g.pitch0 / g.params.Density.factor(r/g.kmax)
}

// maxAdvance finds the largest angular step from (theta, r) whose implied
// gradient stays within the amplitude limit and whose change from the
// previous gradient stays within the slew limit.
//
// The feasible steps form an interval that in general excludes zero: once
// the gradient is up, collapsing it to nothing within one dwell would
// itself violate the slew limit. The search therefore brackets outward
// from the previous step, which the slew limit keeps feasible or nearly
// so, and then bisects the upper boundary of the interval, where both
// constraint measures grow monotonically with the step.
func (g *generator) maxAdvance(theta, r, gxPrev, gyPrev float64) float64 {
	gradientAt := func(dTheta float64) (float64, float64) {
		theta2 := theta + dTheta
		r2 := r + g.pitch(r)*dTheta
		gx := (r2*math.Cos(theta2) - r*math.Cos(theta)) / (g.gamma * g.dt)
		gy := (r2*math.Sin(theta2) - r*math.Sin(theta)) / (g.gamma * g.dt)
		return gx, gy
	}
	// violation is the worse of the two constraint measures relative to
	// its limit. Below 1 the step is strictly feasible. The amplitude
	// ratio grows monotonically with the step and the slew ratio falls
	// and then rises, so their maximum is unimodal.
	violation := func(dTheta float64) float64 {
		gx, gy := gradientAt(dTheta)
		amp := math.Hypot(gx, gy) / g.params.MaxGradAmpl
		sl := math.Hypot(gx-gxPrev, gy-gyPrev) / (g.slewMax * g.dt)
		return math.Max(amp, sl)
	}
	feasible := func(dTheta float64) bool {
		gx, gy := gradientAt(dTheta)
		if math.Hypot(gx, gy) > g.params.MaxGradAmpl*(1+constraintSlack) {
			return false
		}
		if math.Hypot(gx-gxPrev, gy-gyPrev) > g.slewMax*g.dt*(1+constraintSlack) {
			return false
		}
		return true
	}

	// Seed at the step that continues at the current speed; from rest,
	// at half of one slew-limited ramp step.
	c := math.Hypot(r, g.pitch(r))
	seed := math.Hypot(gxPrev, gyPrev) * g.gamma * g.dt / c
	if seed <= 0 {
		seed = 0.5 * g.slewMax * g.dt * g.gamma * g.dt / c
	}

	lo := seed
	var hi float64
	if feasible(seed) {
		// Grow until infeasible, never past a quarter turn per sample.
		hi = 2 * lo
		if hi > math.Pi/2 {
			hi = math.Pi / 2
		}
		for feasible(hi) {
			if hi >= math.Pi/2 {
				return hi
			}
			lo = hi
			hi *= 2
			if hi > math.Pi/2 {
				hi = math.Pi / 2
			}
		}
	} else {
		// The turn at the current speed breaks a limit by a hair: near
		// the crossover from the slew-limited to the amplitude-limited
		// regime the feasible band is very narrow, and in the
		// amplitude-limited regime the growing radius makes the
		// continuation step slightly longer than the limit allows. A
		// ternary search on the unimodal violation measure locates the
		// most comfortable step below the seed.
		a, b := 0.0, seed
		for i := 0; i < advanceIters; i++ {
			m1 := a + (b-a)/3
			m2 := b - (b-a)/3
			if violation(m1) < violation(m2) {
				b = m2
			} else {
				a = m1
			}
		}
		lo = 0.5 * (a + b)
		if !feasible(lo) {
			return 0
		}
		hi = seed
	}

	// The upper boundary of the feasible band lies in [lo, hi]: both
	// constraint measures grow with the step on that side.
	for i := 0; i < advanceIters; i++ {
		mid := 0.5 * (lo + hi)
		if feasible(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// applyDelay shifts the waveform in time by delay seconds using linear
// interpolation between samples. The length is preserved; samples shifted
// past either end clamp to the boundary value.
func applyDelay(w Waveform, delay, dt float64) Waveform {
	shift := delay / dt
	out := make(Waveform, len(w))
	last := len(w) - 1

	for i := range out {
		pos := float64(i) + shift
		switch {
		case pos <= 0:
			out[i] = w[0]
		case pos >= float64(last):
			out[i] = w[last]
		default:
			j := int(math.Floor(pos))
			f := pos - float64(j)
			out[i] = Sample{
				Gx: float32((1-f)*float64(w[j].Gx) + f*float64(w[j+1].Gx)),
				Gy: float32((1-f)*float64(w[j].Gy) + f*float64(w[j+1].Gy)),
			}
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
