package fusion

import (
	"time"

	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/geom"
)

// PoseKind labels the pose views emitted for the best candidate.
type PoseKind string

const (
	PoseBest        PoseKind = "best"
	PoseRaw         PoseKind = "raw"
	PoseFiltered    PoseKind = "filtered"
	PoseCompensated PoseKind = "compensated"
)

// EvalSample is the observational ground-truth comparison emitted when a
// reference pose is available. It never feeds back into fusion.
type EvalSample struct {
	Stamp       time.Time
	CandidateID int64
	// Delta is ground truth minus estimate, per axis.
	Delta geom.Vec3
	// Distance is the Euclidean norm of Delta.
	Distance float64
}

// OutputPort receives the engine's per-cycle outputs. Ports are
// constructed once at engine initialization and held by the orchestrator;
// implementations must not block the processing cycle.
type OutputPort interface {
	// PublishPose delivers one pose view of the best candidate.
	PublishPose(kind PoseKind, p geom.StampedPoint, candidateID int64, confidence float64)
	// PublishFilteredCloud delivers the global-frame filtered cloud after a
	// refinement pass.
	PublishFilteredCloud(c cloud.Cloud)
	// PublishEval delivers a ground-truth comparison sample.
	PublishEval(s EvalSample)
}

// Outputs fans engine emissions out to every attached port.
type Outputs []OutputPort

func (o Outputs) publishPose(kind PoseKind, p geom.StampedPoint, candidateID int64, confidence float64) {
	for _, port := range o {
		port.PublishPose(kind, p, candidateID, confidence)
	}
}

func (o Outputs) publishFilteredCloud(c cloud.Cloud) {
	for _, port := range o {
		port.PublishFilteredCloud(c)
	}
}

func (o Outputs) publishEval(s EvalSample) {
	for _, port := range o {
		port.PublishEval(s)
	}
}

// Recorder persists candidate lifecycle events. A nil Recorder disables
// persistence; errors are logged by the engine and never abort a cycle.
type Recorder interface {
	RecordCandidate(c *Candidate) error
	RecordObservation(phase Phase, c *Candidate, source string) error
}
