package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/pkg/math"
)

// DefaultShadowResolution is the depth target size when none is configured.
const DefaultShadowResolution = 512

// ErrFramebufferIncomplete is returned when the depth target cannot be
// rendered to.
var ErrFramebufferIncomplete = errors.New("shadow framebuffer incomplete")

// LightCameraPolicy places the camera the depth pass renders from. It sits at
// the light's world position plus Offset, rotated by Bias, and approximates
// looking along the light rather than deriving a direction from it.
type LightCameraPolicy struct {
	Offset math.Vec3
	Bias   math.Rotor
	Lens   scene.Perspective
}

// DefaultLightCameraPolicy returns the stock light camera.
func DefaultLightCameraPolicy() LightCameraPolicy {
	return LightCameraPolicy{
		Bias: math.Rotor{
			Cosa:   0.895235002040863,
			SinaXY: 0.34672799706459045,
			SinaYZ: 0.26099100708961487,
			SinaZX: -0.10108300298452377,
		},
		Lens: scene.Perspective{
			AspectRatio: 16.0 / 9.0,
			YFov:        0.8074908757770757,
			ZNear:       0.1,
			ZFar:        100,
		},
	}
}

// Pose returns the light camera pose for a light at lightPos.
func (p LightCameraPolicy) Pose(lightPos math.Vec3) scene.Pose {
	return scene.Pose{
		Translation: lightPos.Add(p.Offset),
		Rotation:    p.Bias,
		Scale:       math.One,
	}
}

// ShadowPass renders scene depth from the light camera into an off-screen
// target.
type ShadowPass struct {
	dev     gpu.Device
	res     *resources
	program gpu.Handle
	target  gpu.DepthTarget
	policy  LightCameraPolicy
	log     *zap.Logger

	lightSpace mgl32.Mat4
}

// newShadowPass creates the depth target. An incomplete framebuffer is fatal.
func newShadowPass(dev gpu.Device, res *resources, program gpu.Handle, resolution int32, policy LightCameraPolicy, log *zap.Logger) (*ShadowPass, error) {
	if resolution <= 0 {
		resolution = DefaultShadowResolution
	}

	target := dev.CreateDepthTarget(resolution, resolution)
	if !dev.FramebufferComplete(target.Framebuffer) {
		dev.Delete(target.Framebuffer)
		dev.Delete(target.Texture)
		return nil, fmt.Errorf("%w: %dx%d depth target", ErrFramebufferIncomplete, resolution, resolution)
	}

	log.Info("shadow pass ready", zap.Int32("resolution", resolution))
	return &ShadowPass{
		dev:        dev,
		res:        res,
		program:    program,
		target:     target,
		policy:     policy,
		log:        log,
		lightSpace: mgl32.Ident4(),
	}, nil
}

// Render draws every mesh into the depth target from the light camera.
func (p *ShadowPass) Render(s *scene.Scene, light scene.NodeID) error {
	n := s.Node(light)
	if n == nil || n.Light == nil {
		return ErrNoLight
	}

	camPose := p.policy.Pose(s.WorldPosition(light))
	view := camPose.Matrix().Inv()
	p.lightSpace = p.policy.Lens.Projection().Mul4(view)

	dev := p.dev
	dev.BindFramebuffer(p.target.Framebuffer)
	dev.Viewport(0, 0, p.target.Width, p.target.Height)
	dev.Clear(gpu.ClearDepth, [4]float32{})
	dev.SetDepthTest(true)
	dev.SetBlend(false)
	// Front-face culling reduces shadow acne on closed meshes.
	dev.SetCullFace(gpu.CullFront)

	dev.UseProgram(p.program)
	dev.SetMat4(p.program, "u_lightSpace", p.lightSpace)

	var err error
	s.Walk(func(n *scene.Node, model mgl32.Mat4) {
		if err != nil || n.Mesh == nil {
			return
		}
		dev.SetMat4(p.program, "u_model", model)
		for _, prim := range n.Mesh.Primitives {
			vao, e := p.res.shadowVertexArray(prim)
			if e != nil {
				err = fmt.Errorf("shadow pass: node %q: %w", n.Name, e)
				return
			}
			dev.BindVertexArray(vao)
			drawPrimitive(dev, prim)
		}
	})

	dev.BindVertexArray(0)
	dev.SetCullFace(gpu.CullBack)
	dev.BindFramebuffer(0)
	return err
}

// LightSpaceMatrix returns the projection · view of the last Render.
func (p *ShadowPass) LightSpaceMatrix() mgl32.Mat4 { return p.lightSpace }

// DepthTexture returns the texture the depth target writes to.
func (p *ShadowPass) DepthTexture() gpu.Handle { return p.target.Texture }

// Resolution returns the depth target size.
func (p *ShadowPass) Resolution() int32 { return p.target.Width }

func (p *ShadowPass) release() {
	p.dev.Delete(p.target.Framebuffer)
	p.dev.Delete(p.target.Texture)
}
