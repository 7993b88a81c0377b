package cloud

import (
	"errors"

	"github.com/banshee-data/targetfusion/internal/geom"
)

// ErrInsufficientPoints means fewer than RefineConfig.MinPoints survived
// the spatial filter. Refinement is skipped for the cycle and the previous
// candidate position stands.
var ErrInsufficientPoints = errors.New("insufficient points near candidate")

// RefineConfig holds the spatial filter parameters for refinement.
type RefineConfig struct {
	// Radius is the sphere radius around the candidate, meters.
	Radius float64
	// MinPoints is the minimum number of surviving points required.
	MinPoints int
}

// DefaultRefineConfig returns production defaults.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{
		Radius:    0.5,
		MinPoints: 20,
	}
}

// Refine filters c (already in the global frame) to the finite points
// within cfg.Radius of center, requires at least cfg.MinPoints survivors,
// and returns the refined estimate together with the filtered cloud for
// diagnostic republication.
//
// Selection is the survivor with maximum Z: the topmost point in the
// cluster. This is a placeholder heuristic, not a centroid or robust
// estimator; callers that need different semantics substitute this step.
func Refine(c Cloud, center geom.Vec3, cfg RefineConfig) (geom.Vec3, Cloud, error) {
	filtered := c.FilterNear(center, cfg.Radius)
	if filtered.Len() < cfg.MinPoints {
		return geom.Vec3{}, filtered, ErrInsufficientPoints
	}

	best := filtered.Points[0]
	for _, p := range filtered.Points[1:] {
		if p.Z > best.Z {
			best = p
		}
	}
	return best, filtered, nil
}
