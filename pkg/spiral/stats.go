package spiral

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a generated waveform for reporting and sanity checks.
// All quantities are derived from the samples themselves, so they reflect
// the waveform as delivered (including any gradient-delay correction).
type Stats struct {
	// Samples is the number of time steps in the waveform.
	Samples int

	// Duration is the total readout time in seconds.
	Duration float64

	// PeakGradient is the largest gradient magnitude in mT/m.
	PeakGradient float64

	// MeanGradient is the mean gradient magnitude in mT/m.
	MeanGradient float64

	// PeakSlewRate is the largest per-step slew rate in mT/m/s, including
	// the initial ramp from zero.
	PeakSlewRate float64

	// KSpaceRadius is the magnitude of the final k-space position in 1/mm,
	// i.e. the radius the trajectory actually reached.
	KSpaceRadius float64
}

// ComputeStats derives summary statistics for a waveform designed with the
// given parameters.
func ComputeStats(w Waveform, p Params) Stats {
	if len(w) == 0 {
		return Stats{}
	}

	dt := p.DwellTime / p.ReadoutOS
	gamma := p.LarmorConst * 1e-3

	mags := make([]float64, len(w))
	var (
		peakSlew       float64
		gxPrev, gyPrev float64
		kx, ky         float64
	)
	for i, s := range w {
		gx, gy := float64(s.Gx), float64(s.Gy)
		mags[i] = math.Hypot(gx, gy)

		slew := math.Hypot(gx-gxPrev, gy-gyPrev) / dt
		if slew > peakSlew {
			peakSlew = slew
		}

		kx += gamma * gx * dt
		ky += gamma * gy * dt
		gxPrev, gyPrev = gx, gy
	}

	return Stats{
		Samples:      len(w),
		Duration:     float64(len(w)) * dt,
		PeakGradient: floats.Max(mags),
		MeanGradient: stat.Mean(mags, nil),
		PeakSlewRate: peakSlew,
		KSpaceRadius: math.Hypot(kx, ky),
	}
}
