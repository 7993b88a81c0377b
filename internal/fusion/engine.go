package fusion

import (
	"errors"
	"sync"

	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/frames"
	"github.com/banshee-data/targetfusion/internal/geom"
	"github.com/banshee-data/targetfusion/internal/monitoring"
)

// Engine orchestrates candidate fusion and target localization. It owns
// the candidate store, the phase state machine, and the adopted camera
// calibration; input adapters deliver one message at a time and the
// engine's mutex is the single-writer queue that serializes them.
//
// Every error in the data path is recoverable at per-cycle or
// per-detection granularity. There is no retry policy: each bundle is an
// independent attempt.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	calib  *camera.Calibration
	store  *Store
	phases *StateMachine
	tf     frames.Provider
	out    Outputs
	rec    Recorder

	groundTruth    *geom.StampedPoint
	lastEval       *EvalSample
	calibConflicts int
	depthGaps      int

	// Overlay metadata for the monitor, retained only when ShowDetection
	// is enabled.
	lastDetections []camera.Detection2D
	lastRGBPresent bool

	// Cycle counters surfaced by Snapshot for the monitor.
	bundlesSeen     int64
	cloudsSeen      int64
	detectionsFused int64
}

// NewEngine builds an engine with the given transform capability, output
// ports, and optional recorder (nil disables persistence).
func NewEngine(cfg Config, tf frames.Provider, out Outputs, rec Recorder) *Engine {
	return &Engine{
		cfg:    cfg,
		calib:  camera.NewCalibration(),
		store:  NewStore(),
		phases: NewStateMachine(cfg.MissCyclesForDepthOnly),
		tf:     tf,
		out:    out,
		rec:    rec,
	}
}

// HandleCameraInfo adopts camera intrinsics. The first valid calibration
// wins; later deliveries are counted and ignored, not surfaced as errors.
func (e *Engine) HandleCameraInfo(in camera.Intrinsics) {
	e.mu.Lock()
	defer e.mu.Unlock()

	adopted, err := e.calib.Adopt(in)
	if err != nil {
		monitoring.Logf("[fusion] rejected calibration: %v", err)
		return
	}
	if !adopted {
		e.calibConflicts++
		if e.calibConflicts == 1 {
			monitoring.Logf("[fusion] calibration already adopted; ignoring updates")
		}
		return
	}
	monitoring.Logf("[fusion] adopted calibration fx=%.1f fy=%.1f cx=%.1f cy=%.1f %dx%d",
		in.Fx, in.Fy, in.Cx, in.Cy, in.Width, in.Height)
}

// HandleBundle processes one synchronized (image, depth, detections)
// bundle: back-projects each target-class detection, transforms it into
// the global frame, and matches or creates a candidate.
func (e *Engine) HandleBundle(b Bundle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bundlesSeen++

	if e.cfg.ShowDetection {
		e.lastDetections = append(e.lastDetections[:0], b.Detections...)
		e.lastRGBPresent = b.RGBPresent
	}

	intr, haveCalib := e.calib.Get()
	sawTarget := false
	fused := false

	for _, det := range b.Detections {
		if det.Class != e.cfg.TargetClass {
			continue
		}
		sawTarget = true

		if b.Depth == nil || !haveCalib {
			// MissingInput: visual detection without a usable depth sample.
			// The phase machine still learns that the target is in view.
			continue
		}

		p, err := camera.EstimatePoint(b.Depth, det, intr)
		if err != nil {
			if errors.Is(err, camera.ErrInvalidDepth) || errors.Is(err, camera.ErrOutsideImage) {
				monitoring.Logf("[fusion] detection at (%.0f,%.0f) skipped: %v", det.CenterX, det.CenterY, err)
				continue
			}
			monitoring.Logf("[fusion] estimate failed: %v", err)
			continue
		}

		t, err := e.tf.Lookup(e.cfg.GlobalFrame, b.FrameID)
		if err != nil {
			monitoring.Logf("[fusion] detection skipped: %v", err)
			continue
		}

		sp := geom.NewStampedPoint(t.Apply(p), e.cfg.GlobalFrame, b.Stamp)
		cand, created := e.store.MatchOrCreate(det.Class, sp, det.Score, e.cfg.MatchDistance)
		if e.cfg.HeightCompensation != 0 {
			comp := sp
			comp.Point.Z += e.cfg.HeightCompensation
			cand.Compensated = comp
		}
		fused = true
		e.detectionsFused++

		if created {
			monitoring.Logf("[fusion] new candidate %d class=%s at (%.2f,%.2f,%.2f) conf=%.2f",
				cand.ID, cand.Class, sp.Point.X, sp.Point.Y, sp.Point.Z, cand.Confidence)
			if e.rec != nil {
				if err := e.rec.RecordCandidate(cand); err != nil {
					monitoring.Logf("[fusion] record candidate %d: %v", cand.ID, err)
				}
			}
		}
	}

	if sawTarget && b.Depth == nil {
		e.depthGaps++
		if e.depthGaps == 1 {
			monitoring.Logf("[fusion] target in view but bundle carries no depth image")
		}
	}
	if sawTarget && !haveCalib {
		monitoring.Logf("[fusion] no camera calibration yet; bundle skipped")
	}

	e.phases.RecordFusion(sawTarget, fused)
	e.expireCandidates(b.Stamp.UnixNano())
	e.publishBest("bundle")
}

// HandleCloud processes a point-cloud delivery. Refinement runs only in
// the depth-only phase and only against the current best candidate.
func (e *Engine) HandleCloud(c cloud.Cloud) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cloudsSeen++

	if e.phases.Current() != PhaseOnlyDepthDetection {
		return
	}

	best := e.store.Best(e.cfg.BestPolicy)
	if best == nil {
		monitoring.Logf("[fusion] cloud ignored: no candidate to refine")
		return
	}

	t, err := e.tf.Lookup(e.cfg.GlobalFrame, c.FrameID)
	if err != nil {
		monitoring.Logf("[fusion] cloud skipped: %v", err)
		return
	}
	global := c.Transform(t, e.cfg.GlobalFrame)

	refined, filtered, err := cloud.Refine(global, best.Position().Point, e.cfg.Refine)
	if err != nil {
		if errors.Is(err, cloud.ErrInsufficientPoints) {
			// Prior position retained for this cycle.
			return
		}
		monitoring.Logf("[fusion] refine failed: %v", err)
		return
	}

	best.applyRefined(geom.NewStampedPoint(refined, e.cfg.GlobalFrame, c.Stamp), c.Stamp.UnixNano())

	if bt, err := e.tf.Lookup(e.cfg.GlobalFrame, e.cfg.BodyFrame); err == nil {
		d := geom.Distance(bt.Origin(), best.Position().Point)
		if e.phases.RecordProximity(d, e.cfg.ProximityThreshold) {
			// The transition cycle ends here; nothing further is published.
			monitoring.Logf("[fusion] PHASE: %s (distance %.2fm)", PhaseTooNearToDetect, d)
			return
		}
	} else {
		monitoring.Logf("[fusion] proximity check skipped: %v", err)
	}

	e.out.publishFilteredCloud(filtered)
	e.publishBest("cloud")
}

// HandleGroundTruth installs the optional reference pose used for offline
// evaluation. Purely observational; no feedback into fusion.
func (e *Engine) HandleGroundTruth(p geom.StampedPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.groundTruth = &p
}

// HandlePhaseOverride forces the active phase from an external control
// message.
func (e *Engine) HandlePhaseOverride(s string) error {
	p, err := ParsePhase(s)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	monitoring.Logf("[fusion] phase override: %s -> %s", e.phases.Current(), p)
	e.phases.Override(p)
	return nil
}

// Phase returns the active acquisition phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phases.Current()
}

func (e *Engine) expireCandidates(nowNanos int64) {
	if e.cfg.CandidateMaxAge <= 0 {
		return
	}
	if n := e.store.ExpireOlderThan(nowNanos - e.cfg.CandidateMaxAge.Nanoseconds()); n > 0 {
		monitoring.Logf("[fusion] expired %d stale candidate(s)", n)
	}
}

// publishBest emits the best candidate's primary pose, the three
// diagnostic views, the persistence record, and the ground-truth
// comparison when a reference pose is present.
func (e *Engine) publishBest(source string) {
	best := e.store.Best(e.cfg.BestPolicy)
	if best == nil {
		return
	}

	e.out.publishPose(PoseBest, best.Position(), best.ID, best.Confidence)
	e.out.publishPose(PoseRaw, best.Raw, best.ID, best.Confidence)
	e.out.publishPose(PoseFiltered, best.Filtered, best.ID, best.Confidence)
	e.out.publishPose(PoseCompensated, best.Compensated, best.ID, best.Confidence)

	if e.rec != nil {
		if err := e.rec.RecordObservation(e.phases.Current(), best, source); err != nil {
			monitoring.Logf("[fusion] record observation: %v", err)
		}
	}

	if e.groundTruth != nil {
		delta := e.groundTruth.Point.Sub(best.Position().Point)
		sample := EvalSample{
			Stamp:       best.Position().Stamp,
			CandidateID: best.ID,
			Delta:       delta,
			Distance:    delta.Norm(),
		}
		e.lastEval = &sample
		e.out.publishEval(sample)
	}
}
