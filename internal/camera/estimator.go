package camera

import (
	"errors"
	"math"

	"github.com/banshee-data/targetfusion/internal/geom"
)

// Detection2D is one visual detection in image coordinates: an axis-aligned
// bounding box given by its center and size, the classifier label, and a
// score in [0, 1]. Detections are transient; nothing retains them past the
// bundle they arrived in.
type Detection2D struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Class   string  `json:"class"`
	Score   float64 `json:"score"`
}

// Estimation failure sentinels. All are recoverable at the per-detection
// level: the detection is skipped and the rest of the bundle proceeds.
var (
	// ErrInvalidDepth means the depth sample at the bounding-box center is
	// zero or non-finite (no return / saturation).
	ErrInvalidDepth = errors.New("invalid depth at detection center")
	// ErrOutsideImage means the bounding-box center falls outside the
	// depth image.
	ErrOutsideImage = errors.New("detection center outside depth image")
)

// EstimatePoint back-projects the detection's bounding-box center through
// the inverse pinhole model using the depth sampled at that pixel, yielding
// a point in the sensor frame:
//
//	x = (u - cx) * d / fx
//	y = (v - cy) * d / fy
//	z = d
//
// The distortion coefficients are not applied for this single-pixel
// lookup; a full implementation would undistort (u, v) first.
// Pure function of its inputs.
func EstimatePoint(depth *DepthImage, det Detection2D, intr Intrinsics) (geom.Vec3, error) {
	u := int(math.Round(det.CenterX))
	v := int(math.Round(det.CenterY))
	if !depth.Contains(u, v) {
		return geom.Vec3{}, ErrOutsideImage
	}

	d := float64(depth.At(u, v))
	if d == 0 || math.IsInf(d, 0) || math.IsNaN(d) {
		return geom.Vec3{}, ErrInvalidDepth
	}

	return geom.Vec3{
		X: (float64(u) - intr.Cx) * d / intr.Fx,
		Y: (float64(v) - intr.Cy) * d / intr.Fy,
		Z: d,
	}, nil
}
