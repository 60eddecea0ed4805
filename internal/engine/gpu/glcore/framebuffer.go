package glcore

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/gpu"
)

// CreateDepthTarget creates a depth-only framebuffer backed by a texture
// the shading pass can sample. Completeness is checked separately.
func (d *Device) CreateDepthTarget(width, height int32) gpu.DepthTarget {
	var fbo, tex uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)

	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, width, height, 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	// Outside the light frustum reads as the far plane, i.e. unoccluded.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	borderColor := []float32{1.0, 1.0, 1.0, 1.0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, tex, 0)

	// No color buffer for the depth pass
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return gpu.DepthTarget{
		Framebuffer: d.add(kindFramebuffer, fbo),
		Texture:     d.add(kindTexture, tex),
		Width:       width,
		Height:      height,
	}
}

// FramebufferComplete reports whether fb can be rendered to.
func (d *Device) FramebufferComplete(fb gpu.Handle) bool {
	var prev int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prev)
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.name(fb))
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prev))

	if status != gl.FRAMEBUFFER_COMPLETE {
		d.log.Warn("framebuffer incomplete", zap.Uint32("status", status))
		return false
	}
	return true
}

// BindFramebuffer makes fb the render target. The zero handle is the window.
func (d *Device) BindFramebuffer(fb gpu.Handle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.name(fb))
}

// ReadPixels reads a rectangle of the bound framebuffer's color buffer.
// The result is flipped so row 0 is the top (OpenGL has origin at bottom-left).
func (d *Device) ReadPixels(x, y, width, height int32) *image.RGBA {
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(x, y, width, height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	rowSize := int(width) * 4
	for row := 0; row < int(height); row++ {
		src := (int(height) - 1 - row) * rowSize
		copy(img.Pix[row*img.Stride:], pixels[src:src+rowSize])
	}
	return img
}
