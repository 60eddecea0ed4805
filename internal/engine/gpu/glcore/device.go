// Package glcore implements gpu.Device on OpenGL 4.1 core profile.
package glcore

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/logger"
)

type kind int

const (
	kindBuffer kind = iota
	kindSampler
	kindTexture
	kindFramebuffer
	kindVertexArray
	kindProgram
)

type object struct {
	kind kind
	name uint32
}

type uniformKey struct {
	prog gpu.Handle
	name string
}

// Device is an OpenGL context wrapper. It must only be used from the thread
// the context is current on.
type Device struct {
	objects  map[gpu.Handle]object
	next     gpu.Handle
	uniforms map[uniformKey]int32
	log      *zap.Logger
}

var _ gpu.Device = (*Device)(nil)

// New loads GL function pointers for the current context.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{
		objects:  make(map[gpu.Handle]object),
		uniforms: make(map[uniformKey]int32),
		log:      logger.Named("glcore"),
	}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	return d, nil
}

// Info returns the GL version and renderer strings.
func (d *Device) Info() string {
	return fmt.Sprintf("%s (%s)", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
}

func (d *Device) add(k kind, name uint32) gpu.Handle {
	d.next++
	d.objects[d.next] = object{kind: k, name: name}
	return d.next
}

// name returns the GL object name for h. The zero handle maps to zero.
func (d *Device) name(h gpu.Handle) uint32 {
	return d.objects[h].name
}

// Delete releases the GL object behind h.
func (d *Device) Delete(h gpu.Handle) {
	obj, ok := d.objects[h]
	if !ok {
		return
	}
	delete(d.objects, h)

	switch obj.kind {
	case kindBuffer:
		gl.DeleteBuffers(1, &obj.name)
	case kindSampler:
		gl.DeleteSamplers(1, &obj.name)
	case kindTexture:
		gl.DeleteTextures(1, &obj.name)
	case kindFramebuffer:
		gl.DeleteFramebuffers(1, &obj.name)
	case kindVertexArray:
		gl.DeleteVertexArrays(1, &obj.name)
	case kindProgram:
		gl.DeleteProgram(obj.name)
		for k := range d.uniforms {
			if k.prog == h {
				delete(d.uniforms, k)
			}
		}
	}
}

// CreateBuffer uploads data to a new static buffer.
func (d *Device) CreateBuffer(target asset.BufferTarget, data []byte) gpu.Handle {
	var buf uint32
	gl.GenBuffers(1, &buf)
	t := bufferTarget(target)
	gl.BindBuffer(t, buf)
	if len(data) > 0 {
		gl.BufferData(t, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	}
	return d.add(kindBuffer, buf)
}

// BindBuffer binds h to target.
func (d *Device) BindBuffer(target asset.BufferTarget, h gpu.Handle) {
	gl.BindBuffer(bufferTarget(target), d.name(h))
}

// CreateSampler creates a sampler object.
func (d *Device) CreateSampler(desc gpu.SamplerDesc) gpu.Handle {
	var s uint32
	gl.GenSamplers(1, &s)
	gl.SamplerParameteri(s, gl.TEXTURE_MAG_FILTER, int32(desc.MagFilter))
	gl.SamplerParameteri(s, gl.TEXTURE_MIN_FILTER, int32(desc.MinFilter))
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_S, int32(desc.WrapS))
	gl.SamplerParameteri(s, gl.TEXTURE_WRAP_T, int32(desc.WrapT))
	return d.add(kindSampler, s)
}

// BindSampler binds a sampler to a texture unit.
func (d *Device) BindSampler(unit int, h gpu.Handle) {
	gl.BindSampler(uint32(unit), d.name(h))
}

// CreateTexture uploads an RGBA image as a 2D texture.
func (d *Device) CreateTexture(img *image.RGBA) gpu.Handle {
	w, h := int32(img.Rect.Dx()), int32(img.Rect.Dy())
	pix := img.Pix
	if img.Stride != int(w)*4 || img.Rect.Min != (image.Point{}) {
		tight := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		for y := 0; y < int(h); y++ {
			copy(tight.Pix[y*tight.Stride:], img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):][:w*4])
		}
		pix = tight.Pix
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return d.add(kindTexture, tex)
}

// GenerateMipmaps builds the mipmap chain for tex.
func (d *Device) GenerateMipmaps(tex gpu.Handle) {
	gl.BindTexture(gl.TEXTURE_2D, d.name(tex))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// BindTexture binds tex to the given unit.
func (d *Device) BindTexture(unit int, tex gpu.Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, d.name(tex))
}

// CreateVertexArray creates an empty vertex array object.
func (d *Device) CreateVertexArray() gpu.Handle {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return d.add(kindVertexArray, vao)
}

// BindVertexArray binds h, or unbinds with the zero handle.
func (d *Device) BindVertexArray(h gpu.Handle) {
	gl.BindVertexArray(d.name(h))
}

// VertexAttrib enables and describes an attribute of the bound vertex array.
func (d *Device) VertexAttrib(l gpu.AttribLayout) {
	gl.EnableVertexAttribArray(l.Location)
	gl.VertexAttribPointerWithOffset(l.Location, int32(l.Components), componentType(l.Type), l.Normalized, int32(l.Stride), uintptr(l.Offset))
}

// DrawElements draws count indices from the bound element buffer.
func (d *Device) DrawElements(mode asset.Mode, count int, indexType asset.ComponentType, offset int) {
	gl.DrawElementsWithOffset(drawMode(mode), int32(count), componentType(indexType), uintptr(offset))
}

// DrawArrays draws count vertices starting at first.
func (d *Device) DrawArrays(mode asset.Mode, first, count int) {
	gl.DrawArrays(drawMode(mode), int32(first), int32(count))
}

// Viewport sets the viewport rectangle.
func (d *Device) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

// Clear clears the selected buffers of the bound framebuffer.
func (d *Device) Clear(flags gpu.ClearFlags, color [4]float32) {
	var mask uint32
	if flags&gpu.ClearColor != 0 {
		gl.ClearColor(color[0], color[1], color[2], color[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if flags&gpu.ClearDepth != 0 {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
}

// SetDepthTest toggles depth testing.
func (d *Device) SetDepthTest(enabled bool) {
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
}

// SetCullFace selects face culling.
func (d *Device) SetCullFace(mode gpu.CullMode) {
	switch mode {
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gpu.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}
}

// SetBlend toggles straight alpha blending.
func (d *Device) SetBlend(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// SetInt sets an int or sampler uniform.
func (d *Device) SetInt(prog gpu.Handle, name string, v int32) {
	if loc := d.uniform(prog, name); loc >= 0 {
		gl.Uniform1i(loc, v)
	}
}

// SetFloat sets a float uniform.
func (d *Device) SetFloat(prog gpu.Handle, name string, v float32) {
	if loc := d.uniform(prog, name); loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

// SetVec3 sets a vec3 uniform.
func (d *Device) SetVec3(prog gpu.Handle, name string, v mgl32.Vec3) {
	if loc := d.uniform(prog, name); loc >= 0 {
		gl.Uniform3fv(loc, 1, &v[0])
	}
}

// SetVec4 sets a vec4 uniform.
func (d *Device) SetVec4(prog gpu.Handle, name string, v mgl32.Vec4) {
	if loc := d.uniform(prog, name); loc >= 0 {
		gl.Uniform4fv(loc, 1, &v[0])
	}
}

// SetMat4 sets a column-major mat4 uniform.
func (d *Device) SetMat4(prog gpu.Handle, name string, m mgl32.Mat4) {
	if loc := d.uniform(prog, name); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

// uniform returns the cached location of name, or -1 if it is inactive.
func (d *Device) uniform(prog gpu.Handle, name string) int32 {
	key := uniformKey{prog, name}
	if loc, ok := d.uniforms[key]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(d.name(prog), gl.Str(name+"\x00"))
	if loc < 0 {
		d.log.Debug("inactive uniform", zap.String("name", name), zap.Uint32("program", uint32(prog)))
	}
	d.uniforms[key] = loc
	return loc
}

func bufferTarget(t asset.BufferTarget) uint32 {
	if t == asset.TargetElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func componentType(c asset.ComponentType) uint32 {
	switch c {
	case asset.Byte:
		return gl.BYTE
	case asset.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case asset.Short:
		return gl.SHORT
	case asset.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case asset.UnsignedInt:
		return gl.UNSIGNED_INT
	default:
		return gl.FLOAT
	}
}

func drawMode(m asset.Mode) uint32 {
	switch m {
	case asset.Points:
		return gl.POINTS
	case asset.Lines:
		return gl.LINES
	case asset.LineLoop:
		return gl.LINE_LOOP
	case asset.LineStrip:
		return gl.LINE_STRIP
	case asset.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case asset.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}
