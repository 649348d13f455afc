package trajectory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// kPoint is a 2D k-space sample for the KD-tree index.
type kPoint struct {
	x, y float64
}

// Compare implements the kdtree.Comparable interface
func (p kPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kPoint)
	switch d {
	case 0:
		return p.x - q.x
	case 1:
		return p.y - q.y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p kPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two points
func (p kPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kPoint)
	dx := p.x - q.x
	dy := p.y - q.y
	return dx*dx + dy*dy
}

// kPoints is a collection of kPoint that satisfies kdtree.Interface
type kPoints []kPoint

func (p kPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kPoints) Len() int                              { return len(p) }
func (p kPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p kPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(kPlane{kPoints: p, Dim: d}, kdtree.MedianOfRandoms(kPlane{kPoints: p, Dim: d}, 100))
}

// kPlane implements sort.Interface and kdtree.SortSlicer for kPoints
type kPlane struct {
	kPoints
	kdtree.Dim
}

func (p kPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.kPoints[i].x < p.kPoints[j].x
	case 1:
		return p.kPoints[i].y < p.kPoints[j].y
	default:
		panic("illegal dimension")
	}
}

func (p kPlane) Slice(start, end int) kdtree.SortSlicer {
	return kPlane{kPoints: p.kPoints[start:end], Dim: p.Dim}
}

func (p kPlane) Swap(i, j int) {
	p.kPoints[i], p.kPoints[j] = p.kPoints[j], p.kPoints[i]
}

// NyquistCoverage measures how well a sample cloud covers the k-space disk
// it spans. It lays a Cartesian grid with Nyquist spacing 1/fov over the
// interior of the disk bounded by the outermost sample and returns the
// largest distance, in 1/mm, from any grid cell center to its nearest
// sample. The outermost grid ring is excluded: only one interleave ends
// exactly on the bounding radius, so boundary cells would report a gap even
// for a fully sampled acquisition. Coverage satisfies the Nyquist criterion
// when the returned gap does not exceed 1/fov.
func NyquistCoverage(samples Arm, fov float64) (float64, error) {
	if len(samples) < 2 {
		return 0, fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	if !(fov > 0) {
		return 0, fmt.Errorf("field of view must be positive, got %g", fov)
	}

	pts := make(kPoints, len(samples))
	var kmax float64
	for i, s := range samples {
		pts[i] = kPoint{x: s.Kx, y: s.Ky}
		if r := math.Hypot(s.Kx, s.Ky); r > kmax {
			kmax = r
		}
	}
	tree := kdtree.New(pts, true)

	step := 1 / fov
	maxGap := 0.0
	for y := -kmax; y <= kmax; y += step {
		for x := -kmax; x <= kmax; x += step {
			if math.Hypot(x, y) > kmax-step {
				continue
			}

			_, dist := tree.Nearest(kPoint{x: x, y: y})
			if gap := math.Sqrt(dist); gap > maxGap {
				maxGap = gap
			}
		}
	}
	return maxGap, nil
}

// IsFullySampled reports whether the sample cloud meets the Nyquist
// criterion for the given field of view.
func IsFullySampled(samples Arm, fov float64) (bool, error) {
	gap, err := NyquistCoverage(samples, fov)
	if err != nil {
		return false, err
	}
	return gap <= 1/fov, nil
}
