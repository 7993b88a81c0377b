package fusion

import (
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
)

// BestCandidatePolicy selects which candidate counts as the current best.
type BestCandidatePolicy string

const (
	// BestMostRecent picks the most recently created or updated candidate.
	// This matches the behavior observed in the field: with a single target
	// the last touched candidate is the live hypothesis.
	BestMostRecent BestCandidatePolicy = "most-recent"
	// BestHighestConfidence picks the candidate with the highest smoothed
	// confidence.
	BestHighestConfidence BestCandidatePolicy = "highest-confidence"
)

// Config holds the engine's tuning parameters.
type Config struct {
	// TargetClass is the detection class label to track.
	TargetClass string

	// MatchDistance is the same-class association threshold, meters.
	MatchDistance float64

	// ProximityThreshold is the platform-to-candidate distance, meters,
	// below which the approach enters the too-near phase.
	ProximityThreshold float64

	// Refine holds the point-cloud refinement filter parameters.
	Refine cloud.RefineConfig

	// MissCyclesForDepthOnly is how many consecutive cycles without a fused
	// detection move the machine from visual+depth to depth-only.
	MissCyclesForDepthOnly int

	// GlobalFrame is the fixed reference frame for cross-cycle comparison.
	GlobalFrame string

	// BodyFrame is the platform body frame used for proximity evaluation.
	BodyFrame string

	// BestPolicy selects the best-candidate policy.
	BestPolicy BestCandidatePolicy

	// CandidateMaxAge enables age-based candidate expiry when non-zero.
	// Zero keeps candidates for the process lifetime (base behavior).
	CandidateMaxAge time.Duration

	// HeightCompensation is a vertical bias, meters, applied to the
	// compensated view of each estimate. Zero leaves the compensated view
	// equal to the raw estimate.
	HeightCompensation float64

	// ShowDetection forwards the latest detection overlay metadata to the
	// monitor snapshot. Display-only; fusion never reads it back.
	ShowDetection bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TargetClass:            "box",
		MatchDistance:          1.0,
		ProximityThreshold:     0.5,
		Refine:                 cloud.DefaultRefineConfig(),
		MissCyclesForDepthOnly: 5,
		GlobalFrame:            "earth",
		BodyFrame:              "base_link",
		BestPolicy:             BestMostRecent,
		CandidateMaxAge:        0,
		HeightCompensation:     0,
		ShowDetection:          false,
	}
}
