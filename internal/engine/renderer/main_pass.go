package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/engine/scene"
)

// Texture units used by the main program.
const (
	unitShadow    = 0
	unitBaseColor = 1
	unitNormal    = 2
)

// MainPass shades the scene from the viewer camera with a shadow lookup.
type MainPass struct {
	dev        gpu.Device
	res        *resources
	program    gpu.Handle
	width      int32
	height     int32
	clearColor [4]float32

	// last frame's light inputs, kept for inspection
	light LightParams
}

func newMainPass(dev gpu.Device, res *resources, program gpu.Handle, width, height int32, clearColor [4]float32) *MainPass {
	return &MainPass{
		dev:        dev,
		res:        res,
		program:    program,
		width:      width,
		height:     height,
		clearColor: clearColor,
	}
}

// Render draws every mesh and clears each visited node's pending delta.
func (p *MainPass) Render(s *scene.Scene, camera, light scene.NodeID, shadow *ShadowPass) error {
	cam := s.Node(camera)
	if cam == nil || cam.Camera == nil {
		return ErrNoCamera
	}
	if l := s.Node(light); l == nil || l.Light == nil {
		return ErrNoLight
	}

	dev, prog := p.dev, p.program
	dev.BindFramebuffer(0)
	dev.Viewport(0, 0, p.width, p.height)
	dev.Clear(gpu.ClearColor|gpu.ClearDepth, p.clearColor)
	dev.SetDepthTest(true)

	view := s.ViewMatrix(camera)
	p.light = lightParams(s, light, view)
	lightSpace := shadow.LightSpaceMatrix()

	dev.UseProgram(prog)
	dev.SetMat4(prog, "u_view", view)
	dev.SetMat4(prog, "u_projection", cam.Camera.Projection())
	dev.SetVec3(prog, "u_lightPosition", p.light.Position)
	dev.SetVec3(prog, "u_lightAmbient", p.light.Ambient)
	dev.SetVec3(prog, "u_lightDiffuse", p.light.Diffuse)
	dev.SetVec3(prog, "u_lightSpecular", p.light.Specular)
	dev.SetFloat(prog, "u_lightShininess", p.light.Shininess)
	dev.SetFloat(prog, "u_lightRange", p.light.Range)
	dev.SetInt(prog, "u_shadowMap", unitShadow)
	dev.SetInt(prog, "u_baseColorTexture", unitBaseColor)
	dev.SetInt(prog, "u_normalTexture", unitNormal)
	dev.BindTexture(unitShadow, shadow.DepthTexture())
	dev.BindSampler(unitShadow, 0)

	var err error
	s.Walk(func(n *scene.Node, model mgl32.Mat4) {
		if err == nil && n.Mesh != nil {
			dev.SetMat4(prog, "u_model", model)
			dev.SetMat4(prog, "u_shadowMatrix", ShadowMatrix(lightSpace, model))
			for _, prim := range n.Mesh.Primitives {
				if e := p.drawPrimitive(prim); e != nil {
					err = fmt.Errorf("main pass: node %q: %w", n.Name, e)
					break
				}
			}
		}
		n.ClearTransforms()
	})

	dev.BindVertexArray(0)
	dev.SetBlend(false)
	dev.SetCullFace(gpu.CullBack)
	return err
}

func (p *MainPass) drawPrimitive(prim *asset.Primitive) error {
	vao, err := p.res.vertexArray(prim)
	if err != nil {
		return err
	}
	mat := prim.Material
	if mat == nil {
		mat = asset.DefaultMaterial()
	}
	if err := p.bindMaterial(mat); err != nil {
		return err
	}

	p.dev.BindVertexArray(vao)
	drawPrimitive(p.dev, prim)
	return nil
}

func (p *MainPass) bindMaterial(m *asset.Material) error {
	dev, prog := p.dev, p.program

	base, smp := p.res.white, gpu.Handle(0)
	if m.BaseColorTexture != nil {
		var err error
		if base, smp, err = p.res.texture(m.BaseColorTexture); err != nil {
			return err
		}
	}
	dev.BindTexture(unitBaseColor, base)
	dev.BindSampler(unitBaseColor, smp)
	dev.SetVec4(prog, "u_baseColorFactor", m.BaseColorFactor)

	hasNormal := int32(0)
	if m.NormalTexture != nil {
		tex, nsmp, err := p.res.texture(m.NormalTexture)
		if err != nil {
			return err
		}
		dev.BindTexture(unitNormal, tex)
		dev.BindSampler(unitNormal, nsmp)
		hasNormal = 1
	}
	dev.SetInt(prog, "u_hasNormalTexture", hasNormal)
	dev.SetFloat(prog, "u_normalScale", m.NormalScale)

	mask := int32(0)
	if m.AlphaMode == asset.AlphaMask {
		mask = 1
	}
	dev.SetInt(prog, "u_alphaMask", mask)
	dev.SetFloat(prog, "u_alphaCutoff", m.AlphaCutoff)
	dev.SetBlend(m.AlphaMode == asset.AlphaBlend)

	if m.DoubleSided {
		dev.SetCullFace(gpu.CullNone)
	} else {
		dev.SetCullFace(gpu.CullBack)
	}
	return nil
}

// Resize updates the viewport size.
func (p *MainPass) Resize(width, height int32) {
	p.width, p.height = width, height
}

// Light returns the light inputs computed by the last Render.
func (p *MainPass) Light() LightParams { return p.light }
