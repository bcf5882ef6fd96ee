// Package vr implements the VR placement engine of spec §4.I:
// VRKneeboard resolves a HMD pose into, for each enabled layer, a
// world position/orientation, a gaze test with hysteresis, a
// zoom-adjusted size, an opacity, and a cache key — plus recenter and
// horizontal-mirror-view support.
package vr

import "github.com/chewxy/math32"

// Vec3 is a 3D vector in the application's right-handed world space
// (X right, Y up, Z toward the user), matching the convention OpenXR
// and OpenVR both expose to the host application.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(o Vec3) Vec3   { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3   { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float32) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

// Normalized returns v scaled to unit length, or the zero vector if v
// is already (numerically) zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < 1e-8 {
		return v
	}
	return v.Scale(1 / l)
}

// Mat3 is a 3x3 rotation matrix stored row-major.
type Mat3 [3][3]float32

// Identity3 is the identity rotation.
func Identity3() Mat3 {
	return Mat3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// RotateX builds a rotation of rad radians about the X axis.
func RotateX(rad float32) Mat3 {
	s, c := math32.Sin(rad), math32.Cos(rad)
	return Mat3{
		{1, 0, 0},
		{0, c, -s},
		{0, s, c},
	}
}

// RotateY builds a rotation of rad radians about the Y axis.
func RotateY(rad float32) Mat3 {
	s, c := math32.Sin(rad), math32.Cos(rad)
	return Mat3{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}
}

// RotateZ builds a rotation of rad radians about the Z axis.
func RotateZ(rad float32) Mat3 {
	s, c := math32.Sin(rad), math32.Cos(rad)
	return Mat3{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// Mul composes m then n: (m.Mul(n)).Apply(v) == m.Apply(n.Apply(v)).
func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for i := range 3 {
		for j := range 3 {
			var sum float32
			for k := range 3 {
				sum += m[i][k] * n[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// Apply rotates v by m.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Yaw extracts the rotation's yaw (rotation about Y) assuming m is a
// pure Y rotation, as produced by RotateY.
func (m Mat3) Yaw() float32 {
	return math32.Atan2(m[0][2], m[2][2])
}
