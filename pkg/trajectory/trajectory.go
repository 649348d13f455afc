// Package trajectory expands a single-arm spiral gradient waveform into the
// full multi-shot k-space trajectory of an acquisition: it integrates the
// gradients to k-space coordinates and rotates the resulting arm into every
// view, optionally across multiple temporal phases, using one of the common
// view-ordering schemes.
package trajectory

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"spiralgen/pkg/spiral"
)

// Point is one k-space sample position in 1/mm.
type Point struct {
	Kx float64
	Ky float64
}

// Arm is the ordered k-space path of one interleave.
type Arm []Point

// Ordering selects how successive views are rotated around the k-space
// origin.
type Ordering int

const (
	// OrderingLinear spaces the views uniformly over the full circle,
	// repeating the same angles in every phase.
	OrderingLinear Ordering = iota

	// OrderingGolden advances each successive view by the golden angle,
	// continuing the sequence across phases.
	OrderingGolden

	// OrderingTiny advances each successive view by the seventh tiny
	// golden angle, a smaller increment suited to dynamic imaging.
	OrderingTiny

	// OrderingSorted uses golden-angle increments but sorts the angles
	// within each phase into ascending order.
	OrderingSorted
)

// ParseOrdering maps a configuration string to an Ordering.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "linear":
		return OrderingLinear, nil
	case "golden":
		return OrderingGolden, nil
	case "tiny":
		return OrderingTiny, nil
	case "sorted":
		return OrderingSorted, nil
	default:
		return 0, fmt.Errorf("unknown ordering %q", s)
	}
}

var (
	phi = (1 + math.Sqrt(5)) / 2

	// goldenAngle is the full-circle golden angle 2*pi*(1-1/phi).
	goldenAngle = 2 * math.Pi * (1 - 1/phi)

	// tinyGoldenAngle is the seventh member of the tiny golden angle
	// family, 2*pi/(phi+6).
	tinyGoldenAngle = 2 * math.Pi / (phi + 6)
)

// KSpace integrates a gradient waveform into the k-space path of the base
// arm, using the dwell grid and gyromagnetic constant from the design
// parameters.
func KSpace(w spiral.Waveform, p spiral.Params) Arm {
	dt := p.DwellTime / p.ReadoutOS
	gamma := p.LarmorConst * 1e-3

	arm := make(Arm, len(w))
	var kx, ky float64
	for i, s := range w {
		kx += gamma * float64(s.Gx) * dt
		ky += gamma * float64(s.Gy) * dt
		arm[i] = Point{Kx: kx, Ky: ky}
	}
	return arm
}

// ViewAngles returns the rotation angle of every view, indexed as
// [phase][view].
func ViewAngles(views, phases int, ordering Ordering) ([][]float64, error) {
	if views < 1 {
		return nil, fmt.Errorf("views must be positive, got %d", views)
	}
	if phases < 1 {
		return nil, fmt.Errorf("phases must be positive, got %d", phases)
	}

	angles := make([][]float64, phases)
	for ph := range angles {
		angles[ph] = make([]float64, views)
		for v := range angles[ph] {
			switch ordering {
			case OrderingLinear:
				angles[ph][v] = 2 * math.Pi * float64(v) / float64(views)
			case OrderingGolden, OrderingSorted:
				angles[ph][v] = math.Mod(float64(ph*views+v)*goldenAngle, 2*math.Pi)
			case OrderingTiny:
				angles[ph][v] = math.Mod(float64(ph*views+v)*tinyGoldenAngle, 2*math.Pi)
			default:
				return nil, fmt.Errorf("unknown ordering %d", ordering)
			}
		}
		if ordering == OrderingSorted {
			sort.Float64s(angles[ph])
		}
	}
	return angles, nil
}

// Expand rotates the base arm into every view of every phase. The result is
// indexed as [phase][view]; every arm has the same length as the base arm.
func Expand(base Arm, views, phases int, ordering Ordering) ([][]Arm, error) {
	if len(base) == 0 {
		return nil, fmt.Errorf("base arm is empty")
	}

	angles, err := ViewAngles(views, phases, ordering)
	if err != nil {
		return nil, err
	}

	// The base arm as a 2xL matrix so each view is a single 2x2 product.
	data := make([]float64, 2*len(base))
	for i, pt := range base {
		data[i] = pt.Kx
		data[len(base)+i] = pt.Ky
	}
	baseM := mat.NewDense(2, len(base), data)

	out := make([][]Arm, phases)
	for ph := range out {
		out[ph] = make([]Arm, views)
		for v := range out[ph] {
			out[ph][v] = rotateArm(baseM, angles[ph][v])
		}
	}
	return out, nil
}

// rotateArm applies a rotation about the k-space origin to every sample of
// the base arm.
func rotateArm(baseM *mat.Dense, angle float64) Arm {
	c, s := math.Cos(angle), math.Sin(angle)
	rot := mat.NewDense(2, 2, []float64{c, -s, s, c})

	var rotated mat.Dense
	rotated.Mul(rot, baseM)

	_, n := rotated.Dims()
	arm := make(Arm, n)
	for i := range arm {
		arm[i] = Point{Kx: rotated.At(0, i), Ky: rotated.At(1, i)}
	}
	return arm
}

// Flatten concatenates every arm of every phase into one sample cloud, in
// phase-then-view order.
func Flatten(arms [][]Arm) Arm {
	var total int
	for _, phase := range arms {
		for _, arm := range phase {
			total += len(arm)
		}
	}

	out := make(Arm, 0, total)
	for _, phase := range arms {
		for _, arm := range phase {
			out = append(out, arm...)
		}
	}
	return out
}
