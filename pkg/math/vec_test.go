package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Mul(t *testing.T) {
	got := Vec3{1, 2, 3}.Mul(Vec3{2, 0.5, -1})
	want := Vec3{2, 1, -3}
	if got != want {
		t.Errorf("Vec3.Mul() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 4, 12}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3RotateQuarterTurns(t *testing.T) {
	const halfPi = float32(1.5707963267948966)
	tests := []struct {
		name string
		axis Vec3
		in   Vec3
		want Vec3
	}{
		{"x to y about z", Vec3{0, 0, 1}, Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{"y to z about x", Vec3{1, 0, 0}, Vec3{0, 1, 0}, Vec3{0, 0, 1}},
		{"z to x about y", Vec3{0, 1, 0}, Vec3{0, 0, 1}, Vec3{1, 0, 0}},
		{"axis is fixed", Vec3{0, 1, 0}, Vec3{0, 2, 0}, Vec3{0, 2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Rotate(RotorFromAxisAngle(halfPi, tt.axis))
			if !got.ApproxEqual(tt.want, 1e-5) {
				t.Errorf("Rotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVec3RotatePreservesLength(t *testing.T) {
	r := RotorFromAxisAngle(1.234, Vec3{1, 2, 3}.Normalize())
	v := Vec3{-4, 0.5, 7}
	if d := v.Rotate(r).Length() - v.Length(); d > 1e-4 || d < -1e-4 {
		t.Errorf("length changed by %v", d)
	}
}
