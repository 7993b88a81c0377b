package fusion

import (
	"github.com/banshee-data/targetfusion/internal/geom"
)

// Candidate is a tracked hypothesis about the target object. It is owned
// exclusively by the Store; the engine and state machine hold references
// for reading and the Store mutates in place on every match.
//
// Three parallel position views are kept: the unprocessed back-projected
// estimate (Raw), the estimate after point-cloud refinement (Filtered,
// the primary view), and a bias-compensated variant (Compensated).
type Candidate struct {
	// ID is assigned monotonically at creation and never reused.
	ID    int64
	Class string

	// Confidence is the smoothed detection score in [0, 1].
	Confidence float64

	Raw         geom.StampedPoint
	Filtered    geom.StampedPoint
	Compensated geom.StampedPoint

	CreatedUnixNanos int64
	UpdatedUnixNanos int64

	// Observations counts successful associations, including refinements.
	Observations int
}

// Position returns the primary position view (the filtered estimate).
func (c *Candidate) Position() geom.StampedPoint {
	return c.Filtered
}

// applyRefined overwrites the filtered view with a point-cloud refined
// estimate. Raw and Compensated keep their last detection-derived values.
func (c *Candidate) applyRefined(p geom.StampedPoint, nowNanos int64) {
	c.Filtered = p
	c.UpdatedUnixNanos = nowNanos
	c.Observations++
}
