// Package camera holds the camera calibration model, the depth image
// representation, and the depth-based 3-D point estimator.
package camera

import (
	"fmt"
	"sync"
)

// Intrinsics is the pinhole calibration of the depth camera. It is a pure
// value type: focal lengths and principal point in pixels, plus the
// distortion coefficients as delivered (carried for completeness; the
// single-pixel estimator does not undistort).
type Intrinsics struct {
	Fx, Fy     float64
	Cx, Cy     float64
	Distortion []float64
	Width      int
	Height     int
}

// Valid reports whether the intrinsics are usable for back-projection.
func (in Intrinsics) Valid() bool {
	return in.Fx > 0 && in.Fy > 0 && in.Width > 0 && in.Height > 0
}

// Calibration stores the adopted camera intrinsics. The first valid
// calibration wins for the lifetime of the process; later deliveries are
// ignored. Reset exists for tests and explicit operator action only.
type Calibration struct {
	mu      sync.RWMutex
	intr    Intrinsics
	adopted bool
}

// NewCalibration returns an empty calibration store.
func NewCalibration() *Calibration {
	return &Calibration{}
}

// Adopt installs intrinsics if none have been adopted yet. It reports
// whether this call performed the adoption; a false return with nil error
// means a calibration was already in place and the new one was ignored.
func (c *Calibration) Adopt(in Intrinsics) (bool, error) {
	if !in.Valid() {
		return false, fmt.Errorf("adopt calibration: invalid intrinsics fx=%v fy=%v %dx%d", in.Fx, in.Fy, in.Width, in.Height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.adopted {
		return false, nil
	}
	// Copy the distortion slice so the caller cannot mutate adopted state.
	d := make([]float64, len(in.Distortion))
	copy(d, in.Distortion)
	in.Distortion = d
	c.intr = in
	c.adopted = true
	return true, nil
}

// Get returns the adopted intrinsics and whether any have been adopted.
func (c *Calibration) Get() (Intrinsics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.intr, c.adopted
}

// Reset clears the adopted calibration.
func (c *Calibration) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intr = Intrinsics{}
	c.adopted = false
}
