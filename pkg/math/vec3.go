// Package math provides the vector and rotor types used by the scene graph.
package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// One is the unit scale vector.
var One = Vec3{1, 1, 1}

// Vec3From converts an [x, y, z] array.
func Vec3From(a [3]float32) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Rotate applies r to v as the sandwich product r v r⁻¹.
// The first step forms the vector part q and scalar xyz of r·v, the second
// multiplies by the conjugate.
func (v Vec3) Rotate(r Rotor) Vec3 {
	ux, uy, uz, w := r.SinaXY, r.SinaYZ, r.SinaZX, r.Cosa

	qx := w*v.X + uy*v.Z - uz*v.Y
	qy := w*v.Y + uz*v.X - ux*v.Z
	qz := w*v.Z + ux*v.Y - uy*v.X
	xyz := ux*v.X + uy*v.Y + uz*v.Z

	return Vec3{
		X: w*qx + xyz*ux - (qy*uz - qz*uy),
		Y: w*qy + xyz*uy - (qz*ux - qx*uz),
		Z: w*qz + xyz*uz - (qx*uy - qy*ux),
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Normalize returns a unit vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// ApproxEqual reports whether every component is within eps.
func (v Vec3) ApproxEqual(other Vec3, eps float32) bool {
	return abs(v.X-other.X) <= eps && abs(v.Y-other.Y) <= eps && abs(v.Z-other.Z) <= eps
}

// Vec returns v as an mgl32 vector.
func (v Vec3) Vec() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}
