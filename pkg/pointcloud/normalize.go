package pointcloud

import (
	"gonum.org/v1/gonum/floats"
)

// NormEpsilon floors the normalization radius so degenerate clouds (a single
// point, or all points identical) collapse to the origin instead of NaN.
const NormEpsilon = 1e-12

// Normalize recenters the coordinate columns on their centroid and scales them
// so the farthest point lies on the unit sphere. Attribute columns such as
// colour or intensity pass through unchanged.
func Normalize(c *Cloud) *Cloud {
	out := c.Clone()
	coords := out.coords()
	centroid := out.Centroid()

	n, _ := coords.Dims()
	maxNorm := 0.0
	for i := range n {
		row := coords.RawRowView(i)
		floats.Sub(row, centroid)
		if norm := floats.Norm(row, 2); norm > maxNorm {
			maxNorm = norm
		}
	}
	if maxNorm < NormEpsilon {
		maxNorm = NormEpsilon
	}

	coords.Scale(1/maxNorm, coords)
	return out
}
