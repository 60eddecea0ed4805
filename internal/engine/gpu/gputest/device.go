// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
)

// Call is one recorded device call.
type Call struct {
	Name string
	Args []any
}

// Draw is a recorded draw call with the state bound when it was issued.
type Draw struct {
	Indexed     bool
	Mode        asset.Mode
	Count       int
	IndexType   asset.ComponentType
	Offset      int
	Program     gpu.Handle
	VertexArray gpu.Handle
	Framebuffer gpu.Handle
	Textures    map[int]gpu.Handle
	Samplers    map[int]gpu.Handle
	Mat4        map[string]mgl32.Mat4
}

// Device records every call and hands out sequential handles.
type Device struct {
	Calls []Call
	Draws []Draw

	// Kinds maps live handles to the name of the call that created them.
	Kinds map[gpu.Handle]string

	// Attribs records VertexAttrib layouts per vertex array.
	Attribs map[gpu.Handle][]gpu.AttribLayout
	// Elements records the element buffer bound to each vertex array.
	Elements map[gpu.Handle]gpu.Handle

	// Uniforms holds the last value set per program and name.
	Uniforms map[gpu.Handle]map[string]any

	// Incomplete makes FramebufferComplete report false.
	Incomplete bool
	// LinkErr makes CreateProgram fail.
	LinkErr error

	// Sources records shader sources passed to CreateProgram.
	Sources [][2]string

	next     gpu.Handle
	program  gpu.Handle
	vao      gpu.Handle
	fb       gpu.Handle
	textures map[int]gpu.Handle
	samplers map[int]gpu.Handle
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty recording device.
func New() *Device {
	return &Device{
		Kinds:    make(map[gpu.Handle]string),
		Attribs:  make(map[gpu.Handle][]gpu.AttribLayout),
		Elements: make(map[gpu.Handle]gpu.Handle),
		Uniforms: make(map[gpu.Handle]map[string]any),
		textures: make(map[int]gpu.Handle),
		samplers: make(map[int]gpu.Handle),
	}
}

// Count returns how many times the named call was recorded.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Live returns the number of created handles not yet deleted.
func (d *Device) Live() int { return len(d.Kinds) }

// Uniform returns the last value set for name on prog.
func (d *Device) Uniform(prog gpu.Handle, name string) any {
	return d.Uniforms[prog][name]
}

// Reset forgets recorded calls and draws but keeps live objects.
func (d *Device) Reset() {
	d.Calls = nil
	d.Draws = nil
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) alloc(kind string) gpu.Handle {
	d.next++
	d.Kinds[d.next] = kind
	return d.next
}

func (d *Device) setUniform(prog gpu.Handle, name string, v any) {
	if d.Uniforms[prog] == nil {
		d.Uniforms[prog] = make(map[string]any)
	}
	d.Uniforms[prog][name] = v
}

func (d *Device) CreateBuffer(target asset.BufferTarget, data []byte) gpu.Handle {
	d.record("CreateBuffer", target, len(data))
	return d.alloc("buffer")
}

func (d *Device) BindBuffer(target asset.BufferTarget, h gpu.Handle) {
	d.record("BindBuffer", target, h)
	if target == asset.TargetElementArrayBuffer && d.vao != 0 {
		d.Elements[d.vao] = h
	}
}

func (d *Device) CreateSampler(desc gpu.SamplerDesc) gpu.Handle {
	d.record("CreateSampler", desc)
	return d.alloc("sampler")
}

func (d *Device) BindSampler(unit int, h gpu.Handle) {
	d.record("BindSampler", unit, h)
	d.samplers[unit] = h
}

func (d *Device) CreateTexture(img *image.RGBA) gpu.Handle {
	d.record("CreateTexture", img.Rect)
	return d.alloc("texture")
}

func (d *Device) GenerateMipmaps(tex gpu.Handle) {
	d.record("GenerateMipmaps", tex)
}

func (d *Device) BindTexture(unit int, tex gpu.Handle) {
	d.record("BindTexture", unit, tex)
	d.textures[unit] = tex
}

func (d *Device) CreateDepthTarget(width, height int32) gpu.DepthTarget {
	d.record("CreateDepthTarget", width, height)
	return gpu.DepthTarget{
		Framebuffer: d.alloc("framebuffer"),
		Texture:     d.alloc("texture"),
		Width:       width,
		Height:      height,
	}
}

func (d *Device) FramebufferComplete(fb gpu.Handle) bool {
	d.record("FramebufferComplete", fb)
	return !d.Incomplete
}

func (d *Device) BindFramebuffer(fb gpu.Handle) {
	d.record("BindFramebuffer", fb)
	d.fb = fb
}

func (d *Device) CreateVertexArray() gpu.Handle {
	d.record("CreateVertexArray")
	return d.alloc("vertexarray")
}

func (d *Device) BindVertexArray(h gpu.Handle) {
	d.record("BindVertexArray", h)
	d.vao = h
}

func (d *Device) VertexAttrib(l gpu.AttribLayout) {
	d.record("VertexAttrib", l)
	d.Attribs[d.vao] = append(d.Attribs[d.vao], l)
}

func (d *Device) CreateProgram(vertexSrc, fragmentSrc string) (gpu.Handle, error) {
	d.record("CreateProgram")
	d.Sources = append(d.Sources, [2]string{vertexSrc, fragmentSrc})
	if d.LinkErr != nil {
		return 0, fmt.Errorf("%w: %v", gpu.ErrLink, d.LinkErr)
	}
	return d.alloc("program"), nil
}

func (d *Device) UseProgram(h gpu.Handle) {
	d.record("UseProgram", h)
	d.program = h
}

func (d *Device) SetInt(prog gpu.Handle, name string, v int32) {
	d.setUniform(prog, name, v)
}

func (d *Device) SetFloat(prog gpu.Handle, name string, v float32) {
	d.setUniform(prog, name, v)
}

func (d *Device) SetVec3(prog gpu.Handle, name string, v mgl32.Vec3) {
	d.setUniform(prog, name, v)
}

func (d *Device) SetVec4(prog gpu.Handle, name string, v mgl32.Vec4) {
	d.setUniform(prog, name, v)
}

func (d *Device) SetMat4(prog gpu.Handle, name string, m mgl32.Mat4) {
	d.setUniform(prog, name, m)
}

func (d *Device) DrawElements(mode asset.Mode, count int, indexType asset.ComponentType, offset int) {
	d.record("DrawElements", mode, count, indexType, offset)
	d.draw(Draw{Indexed: true, Mode: mode, Count: count, IndexType: indexType, Offset: offset})
}

func (d *Device) DrawArrays(mode asset.Mode, first, count int) {
	d.record("DrawArrays", mode, first, count)
	d.draw(Draw{Mode: mode, Count: count, Offset: first})
}

func (d *Device) draw(dr Draw) {
	dr.Program = d.program
	dr.VertexArray = d.vao
	dr.Framebuffer = d.fb
	dr.Textures = make(map[int]gpu.Handle, len(d.textures))
	for k, v := range d.textures {
		dr.Textures[k] = v
	}
	dr.Samplers = make(map[int]gpu.Handle, len(d.samplers))
	for k, v := range d.samplers {
		dr.Samplers[k] = v
	}
	dr.Mat4 = make(map[string]mgl32.Mat4)
	for k, v := range d.Uniforms[d.program] {
		if m, ok := v.(mgl32.Mat4); ok {
			dr.Mat4[k] = m
		}
	}
	d.Draws = append(d.Draws, dr)
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport", x, y, width, height)
}

func (d *Device) Clear(flags gpu.ClearFlags, color [4]float32) {
	d.record("Clear", flags, color)
}

func (d *Device) SetDepthTest(enabled bool) {
	d.record("SetDepthTest", enabled)
}

func (d *Device) SetCullFace(mode gpu.CullMode) {
	d.record("SetCullFace", mode)
}

func (d *Device) SetBlend(enabled bool) {
	d.record("SetBlend", enabled)
}

func (d *Device) ReadPixels(x, y, width, height int32) *image.RGBA {
	d.record("ReadPixels", x, y, width, height)
	return image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
}

func (d *Device) Delete(h gpu.Handle) {
	d.record("Delete", h)
	delete(d.Kinds, h)
}

func (d *Device) Info() string { return "gputest" }
