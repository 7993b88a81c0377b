package cloud

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/targetfusion/internal/geom"
)

// Summary describes the spatial distribution of a cloud. The monitor uses
// it to report the shape of the filtered cluster next to the refined
// estimate.
type Summary struct {
	Count    int
	Centroid geom.Vec3
	// Per-axis standard deviation, meters.
	SpreadX, SpreadY, SpreadZ float64
	MinZ, MaxZ                float64
}

// Summarize computes summary statistics for the cloud. Returns a zero
// Summary for an empty cloud.
func Summarize(c Cloud) Summary {
	n := c.Len()
	if n == 0 {
		return Summary{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	minZ, maxZ := c.Points[0].Z, c.Points[0].Z
	for i, p := range c.Points {
		xs[i] = p.X
		ys[i] = p.Y
		zs[i] = p.Z
		if p.Z < minZ {
			minZ = p.Z
		}
		if p.Z > maxZ {
			maxZ = p.Z
		}
	}

	mx, sx := stat.MeanStdDev(xs, nil)
	my, sy := stat.MeanStdDev(ys, nil)
	mz, sz := stat.MeanStdDev(zs, nil)
	if n == 1 {
		// MeanStdDev returns NaN spread for a single sample.
		sx, sy, sz = 0, 0, 0
	}

	return Summary{
		Count:    n,
		Centroid: geom.Vec3{X: mx, Y: my, Z: mz},
		SpreadX:  sx,
		SpreadY:  sy,
		SpreadZ:  sz,
		MinZ:     minZ,
		MaxZ:     maxZ,
	}
}
