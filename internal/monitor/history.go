package monitor

import (
	"sync"
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/geom"
)

// PoseRecord is one published pose view with its provenance.
type PoseRecord struct {
	Kind        fusion.PoseKind `json:"kind"`
	Position    geom.Vec3       `json:"position"`
	FrameID     string          `json:"frame_id"`
	Stamp       time.Time       `json:"stamp"`
	CandidateID int64           `json:"candidate_id"`
	Confidence  float64         `json:"confidence"`
}

// EvalRecord is one ground-truth comparison sample formatted for the API.
type EvalRecord struct {
	Stamp       time.Time `json:"stamp"`
	CandidateID int64     `json:"candidate_id"`
	DeltaX      float64   `json:"delta_x"`
	DeltaY      float64   `json:"delta_y"`
	DeltaZ      float64   `json:"delta_z"`
	Distance    float64   `json:"distance"`
}

// History accumulates the engine's published outputs in fixed-size rings so
// the HTTP handlers can serve them without touching the engine.
type History struct {
	mu sync.Mutex

	latest     map[fusion.PoseKind]PoseRecord
	trajectory []PoseRecord
	evals      []EvalRecord
	lastCloud  *cloud.Summary

	maxPoses int
	maxEvals int
}

// NewHistory creates a history with the given ring capacities.
func NewHistory(maxPoses, maxEvals int) *History {
	if maxPoses <= 0 {
		maxPoses = 2000
	}
	if maxEvals <= 0 {
		maxEvals = 2000
	}
	return &History{
		latest:   make(map[fusion.PoseKind]PoseRecord),
		maxPoses: maxPoses,
		maxEvals: maxEvals,
	}
}

// AddPose records a pose view. Only the best view contributes to the
// trajectory ring; the other kinds update the per-kind latest map.
func (h *History) AddPose(rec PoseRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[rec.Kind] = rec
	if rec.Kind != fusion.PoseBest {
		return
	}
	h.trajectory = append(h.trajectory, rec)
	if len(h.trajectory) > h.maxPoses {
		h.trajectory = h.trajectory[len(h.trajectory)-h.maxPoses:]
	}
}

// AddEval records a ground-truth comparison sample.
func (h *History) AddEval(rec EvalRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.evals = append(h.evals, rec)
	if len(h.evals) > h.maxEvals {
		h.evals = h.evals[len(h.evals)-h.maxEvals:]
	}
}

// SetCloudSummary records the shape of the most recent filtered cloud.
func (h *History) SetCloudSummary(s cloud.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCloud = &s
}

// Latest returns the most recent pose of the given kind.
func (h *History) Latest(kind fusion.PoseKind) (PoseRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.latest[kind]
	return rec, ok
}

// Trajectory returns a copy of the best-pose trajectory ring.
func (h *History) Trajectory() []PoseRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PoseRecord, len(h.trajectory))
	copy(out, h.trajectory)
	return out
}

// Evals returns a copy of the eval ring.
func (h *History) Evals() []EvalRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]EvalRecord, len(h.evals))
	copy(out, h.evals)
	return out
}

// CloudSummary returns the last filtered-cloud summary, if any.
func (h *History) CloudSummary() *cloud.Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastCloud == nil {
		return nil
	}
	s := *h.lastCloud
	return &s
}
