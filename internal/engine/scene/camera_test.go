package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestPerspectiveProjection(t *testing.T) {
	c := &Perspective{AspectRatio: 16.0 / 9.0, YFov: 0.8, ZNear: 0.1, ZFar: 100}
	assert.Equal(t, mgl32.Perspective(0.8, 16.0/9.0, 0.1, 100), c.Projection())

	c.SetAspect(1)
	assert.Equal(t, float32(1), c.AspectRatio)
}

func TestInfinitePerspectiveMatchesFiniteNearPlane(t *testing.T) {
	inf := &Perspective{AspectRatio: 1.5, YFov: 1, ZNear: 0.5}
	far := &Perspective{AspectRatio: 1.5, YFov: 1, ZNear: 0.5, ZFar: 1e7}

	p := mgl32.Vec4{0.3, -0.2, -0.5, 1}
	a := inf.Projection().Mul4x1(p)
	b := far.Projection().Mul4x1(p)

	// both map the near plane to depth -1
	assert.InDelta(t, -1, a.Z()/a.W(), 1e-4)
	assert.InDelta(t, b.Z()/b.W(), a.Z()/a.W(), 1e-4)
	assert.InDelta(t, b.X(), a.X(), 1e-5)
}

func TestOrthographicProjection(t *testing.T) {
	c := &Orthographic{Left: -2, Right: 2, Bottom: -1, Top: 1, ZNear: 0.1, ZFar: 50}
	assert.Equal(t, mgl32.Ortho(-2, 2, -1, 1, 0.1, 50), c.Projection())
}
