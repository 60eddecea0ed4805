// Package gpu defines the capability surface the renderer draws through.
// Handles are opaque; a backend maps them to its own object names.
package gpu

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/internal/engine/asset"
)

// Handle names a GPU object. Zero is never a valid object and denotes the
// default framebuffer where a framebuffer is expected.
type Handle uint32

// ErrLink is wrapped by CreateProgram when shaders fail to compile or link.
var ErrLink = errors.New("shader program link failed")

// ClearFlags selects buffers to clear.
type ClearFlags int

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// SamplerDesc describes filtering and wrapping for a sampler object.
type SamplerDesc struct {
	MagFilter asset.Filter
	MinFilter asset.Filter
	WrapS     asset.Wrap
	WrapT     asset.Wrap
}

// AttribLayout describes one vertex attribute read from the bound array buffer.
type AttribLayout struct {
	Location   uint32
	Components int
	Type       asset.ComponentType
	Normalized bool
	Stride     int
	Offset     int
}

// DepthTarget is an off-screen framebuffer with a sampleable depth texture.
type DepthTarget struct {
	Framebuffer Handle
	Texture     Handle
	Width       int32
	Height      int32
}

// Device is a graphics context. All methods must be called from the
// goroutine that owns the context.
type Device interface {
	CreateBuffer(target asset.BufferTarget, data []byte) Handle
	BindBuffer(target asset.BufferTarget, h Handle)

	CreateSampler(desc SamplerDesc) Handle
	BindSampler(unit int, h Handle)

	CreateTexture(img *image.RGBA) Handle
	GenerateMipmaps(tex Handle)
	BindTexture(unit int, tex Handle)

	CreateDepthTarget(width, height int32) DepthTarget
	FramebufferComplete(fb Handle) bool
	BindFramebuffer(fb Handle)

	CreateVertexArray() Handle
	BindVertexArray(h Handle)
	VertexAttrib(layout AttribLayout)

	CreateProgram(vertexSrc, fragmentSrc string) (Handle, error)
	UseProgram(h Handle)
	SetInt(prog Handle, name string, v int32)
	SetFloat(prog Handle, name string, v float32)
	SetVec3(prog Handle, name string, v mgl32.Vec3)
	SetVec4(prog Handle, name string, v mgl32.Vec4)
	SetMat4(prog Handle, name string, m mgl32.Mat4)

	DrawElements(mode asset.Mode, count int, indexType asset.ComponentType, offset int)
	DrawArrays(mode asset.Mode, first, count int)

	Viewport(x, y, width, height int32)
	Clear(flags ClearFlags, color [4]float32)
	SetDepthTest(enabled bool)
	SetCullFace(mode CullMode)
	SetBlend(enabled bool)

	ReadPixels(x, y, width, height int32) *image.RGBA

	// Delete releases any object created by this device.
	Delete(h Handle)

	// Info describes the driver for logging.
	Info() string
}
