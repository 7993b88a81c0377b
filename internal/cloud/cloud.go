// Package cloud provides the point-cloud representation and the spatial
// refinement step that sharpens the best-candidate estimate when the
// platform is close enough that visual detection has degraded.
package cloud

import (
	"time"

	"github.com/banshee-data/targetfusion/internal/geom"
)

// Cloud is an ordered set of Cartesian points expressed in a single frame.
type Cloud struct {
	FrameID string
	Stamp   time.Time
	Points  []geom.Vec3
}

// Len returns the number of points.
func (c Cloud) Len() int { return len(c.Points) }

// Transform returns a new cloud with every point mapped through t and the
// frame relabelled. Non-finite input points are carried through unchanged;
// the refinement filter discards them.
func (c Cloud) Transform(t geom.Transform, frameID string) Cloud {
	out := Cloud{
		FrameID: frameID,
		Stamp:   c.Stamp,
		Points:  make([]geom.Vec3, len(c.Points)),
	}
	for i, p := range c.Points {
		out.Points[i] = t.Apply(p)
	}
	return out
}

// FilterNear returns the subset of points that are finite and within
// radius of center.
func (c Cloud) FilterNear(center geom.Vec3, radius float64) Cloud {
	out := Cloud{FrameID: c.FrameID, Stamp: c.Stamp}
	out.Points = make([]geom.Vec3, 0, len(c.Points))
	for _, p := range c.Points {
		if !p.IsFinite() {
			continue
		}
		if geom.Distance(p, center) > radius {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}
