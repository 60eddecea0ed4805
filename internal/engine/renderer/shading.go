package renderer

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/pkg/math"
)

// ShadowedVisibility is the light factor applied to occluded fragments.
// The fragment shader receives the same value as SHADOWED_VISIBILITY.
const ShadowedVisibility float32 = 0.5

// ambientColor is the fixed ambient term, in 0-255 units.
var ambientColor = math.Vec3{X: 56, Y: 56, Z: 56}

// biasMatrix maps clip space [-1, 1] to texture space [0, 1].
var biasMatrix = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}

// Visibility is the two-level shadow test the fragment shader performs:
// a stored depth nearer than the fragment's light-space depth means the
// fragment is occluded.
func Visibility(stored, fragment float32) float32 {
	if stored < fragment {
		return ShadowedVisibility
	}
	return 1
}

// ShadowMatrix returns bias · lightSpace · model.
func ShadowMatrix(lightSpace, model mgl32.Mat4) mgl32.Mat4 {
	return biasMatrix.Mul4(lightSpace).Mul4(model)
}

// LightParams are the per-frame shading inputs for the primary light.
type LightParams struct {
	Position  mgl32.Vec3 // view space
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
	Range     float32
}

// lightParams derives shading inputs from the light node and view matrix.
func lightParams(s *scene.Scene, id scene.NodeID, view mgl32.Mat4) LightParams {
	l := s.Node(id).Light
	world := s.WorldPosition(id)
	pos := view.Mul4x1(world.Vec().Vec4(1)).Vec3()
	c := l.Color.Vec()

	return LightParams{
		Position:  pos,
		Ambient:   ambientColor.Scale(1.0 / 255).Vec(),
		Diffuse:   c,
		Specular:  c,
		Shininess: l.Intensity * 0.5,
		Range:     l.Range,
	}
}

// shaderDefines are the compile-time constants for the main program.
func shaderDefines() map[string]string {
	return map[string]string{
		"SHADOWED_VISIBILITY": strconv.FormatFloat(float64(ShadowedVisibility), 'f', -1, 32),
	}
}
