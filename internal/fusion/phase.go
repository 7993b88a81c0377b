package fusion

import "fmt"

// Phase is the active acquisition strategy. Exactly one value is active at
// a time and the StateMachine is its only mutator; every other component
// reads it to decide which estimator is authoritative for the cycle.
type Phase string

const (
	PhaseNoDetection         Phase = "no_detection"
	PhaseVisualWithoutDepth  Phase = "visual_detection_without_depth"
	PhaseVisualWithDepth     Phase = "visual_detection_with_depth"
	PhaseOnlyDepthDetection  Phase = "only_depth_detection"
	PhaseTooNearToDetect     Phase = "too_near_to_detect"
)

// ParsePhase converts an external phase override string into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseNoDetection, PhaseVisualWithoutDepth, PhaseVisualWithDepth,
		PhaseOnlyDepthDetection, PhaseTooNearToDetect:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// StateMachine owns the acquisition phase. Transitions are driven by the
// per-cycle signals the engine reports: fusion outcome, and platform
// proximity to the best candidate.
//
// PhaseTooNearToDetect is terminal for the remainder of an approach; only
// an explicit Override leaves it.
type StateMachine struct {
	phase         Phase
	missCycles    int
	missThreshold int
}

// NewStateMachine returns a machine in PhaseNoDetection. missThreshold is
// how many consecutive cycles without a fused detection demote
// visual+depth tracking to depth-only.
func NewStateMachine(missThreshold int) *StateMachine {
	return &StateMachine{phase: PhaseNoDetection, missThreshold: missThreshold}
}

// Current returns the active phase.
func (m *StateMachine) Current() Phase { return m.phase }

// MissCycles returns the consecutive cycles without a fused detection.
func (m *StateMachine) MissCycles() int { return m.missCycles }

// RecordFusion reports one processing cycle's outcome. detectionSeen means
// a target-class detection arrived; depthFused means at least one was
// back-projected to a valid 3-D point.
func (m *StateMachine) RecordFusion(detectionSeen, depthFused bool) {
	if m.phase == PhaseTooNearToDetect {
		return
	}

	if depthFused {
		m.missCycles = 0
		m.phase = PhaseVisualWithDepth
		return
	}

	if detectionSeen {
		m.missCycles = 0
		if m.phase == PhaseNoDetection {
			m.phase = PhaseVisualWithoutDepth
		}
		return
	}

	m.missCycles++
	if m.phase == PhaseVisualWithDepth && m.missCycles >= m.missThreshold {
		m.phase = PhaseOnlyDepthDetection
	}
}

// RecordProximity reports the platform-to-best-candidate distance. The
// too-near transition fires only from the depth-only phase, strictly below
// the threshold.
func (m *StateMachine) RecordProximity(distance, threshold float64) bool {
	if m.phase != PhaseOnlyDepthDetection {
		return false
	}
	if distance < threshold {
		m.phase = PhaseTooNearToDetect
		return true
	}
	return false
}

// Override forces the phase from an external control message. It is the
// only exit from PhaseTooNearToDetect.
func (m *StateMachine) Override(p Phase) {
	m.phase = p
	m.missCycles = 0
}
