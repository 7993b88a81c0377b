package fusion

import (
	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/geom"
)

// CandidateView is a copy of a candidate's externally visible state, safe
// to hand to the monitor without exposing store internals.
type CandidateView struct {
	ID               int64             `json:"id"`
	Class            string            `json:"class"`
	Confidence       float64           `json:"confidence"`
	Raw              geom.StampedPoint `json:"raw"`
	Filtered         geom.StampedPoint `json:"filtered"`
	Compensated      geom.StampedPoint `json:"compensated"`
	Observations     int               `json:"observations"`
	CreatedUnixNanos int64             `json:"created_unix_nanos"`
	UpdatedUnixNanos int64             `json:"updated_unix_nanos"`
}

// Snapshot is a point-in-time read model of the engine for the monitor.
type Snapshot struct {
	Phase           Phase              `json:"phase"`
	MissCycles      int                `json:"miss_cycles"`
	HaveCalibration bool               `json:"have_calibration"`
	Candidates      []CandidateView    `json:"candidates"`
	Best            *CandidateView     `json:"best,omitempty"`
	GroundTruth     *geom.StampedPoint `json:"ground_truth,omitempty"`
	LastEval        *EvalSample        `json:"last_eval,omitempty"`
	BundlesSeen     int64              `json:"bundles_seen"`
	CloudsSeen      int64              `json:"clouds_seen"`
	DetectionsFused int64              `json:"detections_fused"`

	// Overlay metadata, populated only when detection display is enabled.
	LastDetections []camera.Detection2D `json:"last_detections,omitempty"`
	RGBPresent     bool                 `json:"rgb_present,omitempty"`
}

func viewOf(c *Candidate) CandidateView {
	return CandidateView{
		ID:               c.ID,
		Class:            c.Class,
		Confidence:       c.Confidence,
		Raw:              c.Raw,
		Filtered:         c.Filtered,
		Compensated:      c.Compensated,
		Observations:     c.Observations,
		CreatedUnixNanos: c.CreatedUnixNanos,
		UpdatedUnixNanos: c.UpdatedUnixNanos,
	}
}

// Snapshot copies the engine's externally visible state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, haveCalib := e.calib.Get()
	snap := Snapshot{
		Phase:           e.phases.Current(),
		MissCycles:      e.phases.MissCycles(),
		HaveCalibration: haveCalib,
		BundlesSeen:     e.bundlesSeen,
		CloudsSeen:      e.cloudsSeen,
		DetectionsFused: e.detectionsFused,
	}

	for _, c := range e.store.All() {
		snap.Candidates = append(snap.Candidates, viewOf(c))
	}
	if best := e.store.Best(e.cfg.BestPolicy); best != nil {
		v := viewOf(best)
		snap.Best = &v
	}
	if e.groundTruth != nil {
		gt := *e.groundTruth
		snap.GroundTruth = &gt
	}
	if e.lastEval != nil {
		ev := *e.lastEval
		snap.LastEval = &ev
	}
	if e.cfg.ShowDetection && len(e.lastDetections) > 0 {
		snap.LastDetections = append([]camera.Detection2D(nil), e.lastDetections...)
		snap.RGBPresent = e.lastRGBPresent
	}
	return snap
}
