package fusion

import (
	"time"

	"github.com/banshee-data/targetfusion/internal/camera"
)

// Bundle is one time-aligned group of sensor messages delivered for a
// single processing cycle. The external collaborator synchronizes the
// image, depth, and detections before delivery; the engine performs no
// buffering or re-ordering of its own.
type Bundle struct {
	// Stamp is the shared acquisition time of the bundle.
	Stamp time.Time

	// FrameID is the camera sensor frame the depth image is expressed in.
	FrameID string

	// Depth is the co-registered depth image. Nil when the depth stream is
	// not available for this cycle (detection-only bundle).
	Depth *camera.DepthImage

	// Detections are the 2-D detections synchronized with the image pair.
	Detections []camera.Detection2D

	// RGBPresent records that a display-only RGB image accompanied the
	// bundle. The engine never decodes it; the monitor uses the flag to
	// drive detection overlays.
	RGBPresent bool
}
