package geom

import "math"

// MatrixValidationTolerance is the tolerance used when checking that the
// rotation submatrix of a transform is a proper rotation.
const MatrixValidationTolerance = 0.01

// Transform is a rigid transform expressed as a 4x4 row-major matrix:
// m00,m01,m02,m03, m10,... Applying it maps a point from the source frame
// into the target frame.
type Transform struct {
	T [16]float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{T: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translation returns a pure translation transform.
func Translation(offset Vec3) Transform {
	t := Identity()
	t.T[3] = offset.X
	t.T[7] = offset.Y
	t.T[11] = offset.Z
	return t
}

// Apply maps p through the transform.
func (t Transform) Apply(p Vec3) Vec3 {
	return Vec3{
		X: t.T[0]*p.X + t.T[1]*p.Y + t.T[2]*p.Z + t.T[3],
		Y: t.T[4]*p.X + t.T[5]*p.Y + t.T[6]*p.Z + t.T[7],
		Z: t.T[8]*p.X + t.T[9]*p.Y + t.T[10]*p.Z + t.T[11],
	}
}

// Origin returns the translation component, i.e. the source frame's origin
// expressed in the target frame.
func (t Transform) Origin() Vec3 {
	return Vec3{X: t.T[3], Y: t.T[7], Z: t.T[11]}
}

// IsValid checks that the matrix is a proper rigid transform:
// orthonormal rotation submatrix (det ~= 1) and last row [0 0 0 1].
func (t Transform) IsValid() bool {
	r00, r01, r02 := t.T[0], t.T[1], t.T[2]
	r10, r11, r12 := t.T[4], t.T[5], t.T[6]
	r20, r21, r22 := t.T[8], t.T[9], t.T[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return false
	}

	if t.T[12] != 0 || t.T[13] != 0 || t.T[14] != 0 || math.Abs(t.T[15]-1.0) > 0.001 {
		return false
	}

	return true
}

// RotationZ returns a rotation of yaw radians about the Z axis.
func RotationZ(yaw float64) Transform {
	c := math.Cos(yaw)
	s := math.Sin(yaw)
	t := Identity()
	t.T[0] = c
	t.T[1] = -s
	t.T[4] = s
	t.T[5] = c
	return t
}
