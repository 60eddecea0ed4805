package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Rotor is a 3D rotation stored as a scalar part and three bivector
// coefficients. It is isomorphic to a unit quaternion with
// SinaXY=x, SinaYZ=y, SinaZX=z and Cosa=w.
//
// Rotors built through the constructors here have unit magnitude.
// Mul, Invert and Rotate assume that and never check it.
type Rotor struct {
	Cosa   float32
	SinaXY float32
	SinaYZ float32
	SinaZX float32
}

// RotorIdentity returns the rotor for a zero-angle rotation.
func RotorIdentity() Rotor {
	return Rotor{Cosa: 1}
}

// RotorFromAxisAngle returns the rotor rotating by angle radians about axis.
// axis must be normalized.
func RotorFromAxisAngle(angle float32, axis Vec3) Rotor {
	half := float64(angle) / 2
	s := float32(math.Sin(half))
	return Rotor{
		Cosa:   float32(math.Cos(half)),
		SinaXY: axis.X * s,
		SinaYZ: axis.Y * s,
		SinaZX: axis.Z * s,
	}
}

// RotorFromQuaternion converts an [x, y, z, w] quaternion.
func RotorFromQuaternion(q [4]float32) Rotor {
	return Rotor{Cosa: q[3], SinaXY: q[0], SinaYZ: q[1], SinaZX: q[2]}
}

// Quaternion returns r as [x, y, z, w].
func (r Rotor) Quaternion() [4]float32 {
	return [4]float32{r.SinaXY, r.SinaYZ, r.SinaZX, r.Cosa}
}

// Mul returns the rotor that applies b first, then r.
func (r Rotor) Mul(b Rotor) Rotor {
	return Rotor{
		Cosa:   r.Cosa*b.Cosa - r.SinaXY*b.SinaXY - r.SinaYZ*b.SinaYZ - r.SinaZX*b.SinaZX,
		SinaXY: r.Cosa*b.SinaXY + r.SinaXY*b.Cosa + r.SinaYZ*b.SinaZX - r.SinaZX*b.SinaYZ,
		SinaYZ: r.Cosa*b.SinaYZ - r.SinaXY*b.SinaZX + r.SinaYZ*b.Cosa + r.SinaZX*b.SinaXY,
		SinaZX: r.Cosa*b.SinaZX + r.SinaXY*b.SinaYZ - r.SinaYZ*b.SinaXY + r.SinaZX*b.Cosa,
	}
}

// Invert returns the conjugate, which is the inverse of a unit rotor.
func (r Rotor) Invert() Rotor {
	return Rotor{Cosa: r.Cosa, SinaXY: -r.SinaXY, SinaYZ: -r.SinaYZ, SinaZX: -r.SinaZX}
}

// Magnitude returns the length of the 4-tuple.
func (r Rotor) Magnitude() float32 {
	return float32(math.Sqrt(float64(r.Cosa*r.Cosa + r.SinaXY*r.SinaXY + r.SinaYZ*r.SinaYZ + r.SinaZX*r.SinaZX)))
}

// Normalize rescales r to unit magnitude. A degenerate rotor becomes identity.
func (r Rotor) Normalize() Rotor {
	m := r.Magnitude()
	if m < 0.0001 {
		return RotorIdentity()
	}
	inv := 1 / m
	return Rotor{Cosa: r.Cosa * inv, SinaXY: r.SinaXY * inv, SinaYZ: r.SinaYZ * inv, SinaZX: r.SinaZX * inv}
}

// Mat4 returns the rotation matrix for r.
func (r Rotor) Mat4() mgl32.Mat4 {
	return mgl32.Quat{W: r.Cosa, V: mgl32.Vec3{r.SinaXY, r.SinaYZ, r.SinaZX}}.Mat4()
}

// ApproxEqual reports whether every component of r and o is within eps.
func (r Rotor) ApproxEqual(o Rotor, eps float32) bool {
	return abs(r.Cosa-o.Cosa) <= eps &&
		abs(r.SinaXY-o.SinaXY) <= eps &&
		abs(r.SinaYZ-o.SinaYZ) <= eps &&
		abs(r.SinaZX-o.SinaZX) <= eps
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
