package scene

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera supplies a projection matrix. The view comes from the owning node.
type Camera interface {
	Projection() mgl32.Mat4
}

// Perspective is a symmetric perspective camera. A ZFar of zero projects to
// infinity.
type Perspective struct {
	AspectRatio float32
	YFov        float32
	ZNear       float32
	ZFar        float32
}

// Projection returns the perspective matrix.
func (c *Perspective) Projection() mgl32.Mat4 {
	if c.ZFar > 0 {
		return mgl32.Perspective(c.YFov, c.AspectRatio, c.ZNear, c.ZFar)
	}

	f := float32(1 / gomath.Tan(float64(c.YFov)/2))
	return mgl32.Mat4{
		f / c.AspectRatio, 0, 0, 0,
		0, f, 0, 0,
		0, 0, -1, -1,
		0, 0, -2 * c.ZNear, 0,
	}
}

// SetAspect updates the aspect ratio after a viewport resize.
func (c *Perspective) SetAspect(aspect float32) {
	c.AspectRatio = aspect
}

// Orthographic is an axis-aligned orthographic camera.
type Orthographic struct {
	Left, Right float32
	Bottom, Top float32
	ZNear, ZFar float32
}

// Projection returns the orthographic matrix.
func (c *Orthographic) Projection() mgl32.Mat4 {
	return mgl32.Ortho(c.Left, c.Right, c.Bottom, c.Top, c.ZNear, c.ZFar)
}
