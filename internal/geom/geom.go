// Package geom provides the small set of geometric value types shared by
// the fusion pipeline: 3-D vectors, frame-stamped points, and 4x4 rigid
// transforms.
//
// Coordinate convention: X=right, Y=forward, Z=up, distances in meters.
package geom

import (
	"math"
	"time"
)

// Vec3 is a Cartesian 3-D point or direction.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z}
}

// Sub returns v - u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsFinite reports whether all three coordinates are finite numbers.
func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Norm()
}

// StampedPoint is a point tagged with the frame it is expressed in and the
// acquisition time of the measurement it came from. Immutable once built;
// downstream consumers copy rather than mutate.
type StampedPoint struct {
	Point   Vec3
	FrameID string
	Stamp   time.Time
}

// NewStampedPoint builds a StampedPoint.
func NewStampedPoint(p Vec3, frameID string, stamp time.Time) StampedPoint {
	return StampedPoint{Point: p, FrameID: frameID, Stamp: stamp}
}
