package renderer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/internal/engine/texture"
)

// Vertex attribute locations shared by both programs.
var attribLocations = []struct {
	name     string
	location uint32
}{
	{asset.AttrPosition, 0},
	{asset.AttrNormal, 1},
	{asset.AttrTexCoord0, 2},
	{asset.AttrTangent, 3},
}

// resources uploads scene assets through a Cache.
type resources struct {
	dev   gpu.Device
	cache *Cache
	log   *zap.Logger

	// shadowVAOs holds position-only vertex arrays keyed by primitive ID.
	shadowVAOs *Cache

	white gpu.Handle
}

func newResources(dev gpu.Device, log *zap.Logger) *resources {
	return &resources{
		dev:        dev,
		cache:      NewCache(),
		shadowVAOs: NewCache(),
		log:        log,
		white:      dev.CreateTexture(texture.White()),
	}
}

func (r *resources) release() {
	r.shadowVAOs.Release(r.dev)
	r.cache.Release(r.dev)
	if r.white != 0 {
		r.dev.Delete(r.white)
		r.white = 0
	}
}

// prepare uploads everything reachable from mesh nodes.
func (r *resources) prepare(s *scene.Scene) error {
	var err error
	meshes := 0
	s.Traverse(func(n *scene.Node) {
		if err != nil || n.Mesh == nil {
			return
		}
		meshes++
		for _, p := range n.Mesh.Primitives {
			if _, err = r.vertexArray(p); err != nil {
				return
			}
			if _, err = r.shadowVertexArray(p); err != nil {
				return
			}
			if err = r.material(p.Material); err != nil {
				return
			}
		}
	}, nil)
	if err != nil {
		return err
	}

	r.log.Info("scene prepared", zap.Int("meshes", meshes), zap.Int("gpu_objects", r.cache.Len()+r.shadowVAOs.Len()))
	return nil
}

func (r *resources) bufferView(bv *asset.BufferView) (gpu.Handle, error) {
	if bv == nil {
		return 0, fmt.Errorf("accessor has no buffer view")
	}
	return r.cache.GetOrCreate(bv.ID, func() (gpu.Handle, error) {
		r.log.Debug("uploading buffer view", zap.Uint64("id", uint64(bv.ID)), zap.Int("bytes", len(bv.Data)))
		return r.dev.CreateBuffer(bv.Target, bv.Data), nil
	})
}

func (r *resources) sampler(s *asset.Sampler) (gpu.Handle, error) {
	return r.cache.GetOrCreate(s.ID, func() (gpu.Handle, error) {
		return r.dev.CreateSampler(gpu.SamplerDesc{
			MagFilter: s.MagFilter,
			MinFilter: s.MinFilter,
			WrapS:     s.WrapS,
			WrapT:     s.WrapT,
		}), nil
	})
}

// texture returns the image and sampler handles for tex, generating
// mipmaps once if the sampler needs them.
func (r *resources) texture(tex *asset.Texture) (img, smp gpu.Handle, err error) {
	if tex.Image == nil || tex.Image.Pixels == nil {
		return 0, 0, fmt.Errorf("texture %d has no image data", tex.ID)
	}
	img, err = r.cache.GetOrCreate(tex.Image.ID, func() (gpu.Handle, error) {
		r.log.Debug("uploading image", zap.String("name", tex.Image.Name), zap.Stringer("size", tex.Image.Pixels.Rect.Size()))
		return r.dev.CreateTexture(tex.Image.Pixels), nil
	})
	if err != nil {
		return 0, 0, err
	}
	if tex.Sampler == nil {
		tex.Sampler = asset.NewSampler()
	}
	if smp, err = r.sampler(tex.Sampler); err != nil {
		return 0, 0, err
	}

	if tex.Sampler.MinFilter.UsesMipmaps() && !tex.HasMipmaps {
		r.dev.GenerateMipmaps(img)
		tex.HasMipmaps = true
	}
	return img, smp, nil
}

func (r *resources) material(m *asset.Material) error {
	if m == nil {
		return nil
	}
	for _, t := range []*asset.Texture{m.BaseColorTexture, m.NormalTexture} {
		if t == nil {
			continue
		}
		if _, _, err := r.texture(t); err != nil {
			return fmt.Errorf("material %q: %w", m.Name, err)
		}
	}
	return nil
}

// vertexArray builds the full vertex array for p.
func (r *resources) vertexArray(p *asset.Primitive) (gpu.Handle, error) {
	return r.cache.GetOrCreate(p.ID, func() (gpu.Handle, error) {
		return r.buildVertexArray(p, false)
	})
}

// shadowVertexArray builds a vertex array that binds positions only.
func (r *resources) shadowVertexArray(p *asset.Primitive) (gpu.Handle, error) {
	return r.shadowVAOs.GetOrCreate(p.ID, func() (gpu.Handle, error) {
		return r.buildVertexArray(p, true)
	})
}

func (r *resources) buildVertexArray(p *asset.Primitive, positionOnly bool) (gpu.Handle, error) {
	if p.Attributes[asset.AttrPosition] == nil {
		return 0, fmt.Errorf("primitive %d has no %s attribute", p.ID, asset.AttrPosition)
	}

	// Resolve buffers first so no upload happens with the vertex array bound.
	type binding struct {
		buf    gpu.Handle
		layout gpu.AttribLayout
	}
	var bindings []binding
	for _, attr := range attribLocations {
		name, loc := attr.name, attr.location
		if positionOnly && name != asset.AttrPosition {
			continue
		}
		acc := p.Attributes[name]
		if acc == nil {
			continue
		}
		buf, err := r.bufferView(acc.BufferView)
		if err != nil {
			return 0, fmt.Errorf("primitive %d %s: %w", p.ID, name, err)
		}
		bindings = append(bindings, binding{buf, gpu.AttribLayout{
			Location:   loc,
			Components: acc.NumComponents,
			Type:       acc.ComponentType,
			Normalized: acc.Normalized,
			Stride:     acc.Stride(),
			Offset:     acc.ByteOffset,
		}})
	}

	var indices gpu.Handle
	if p.Indices != nil {
		var err error
		if indices, err = r.bufferView(p.Indices.BufferView); err != nil {
			return 0, fmt.Errorf("primitive %d indices: %w", p.ID, err)
		}
	}

	vao := r.dev.CreateVertexArray()
	r.dev.BindVertexArray(vao)
	for _, b := range bindings {
		r.dev.BindBuffer(asset.TargetArrayBuffer, b.buf)
		r.dev.VertexAttrib(b.layout)
	}
	if indices != 0 {
		r.dev.BindBuffer(asset.TargetElementArrayBuffer, indices)
	}
	r.dev.BindVertexArray(0)
	return vao, nil
}

// drawPrimitive issues one draw for p with its vertex array bound.
func drawPrimitive(dev gpu.Device, p *asset.Primitive) {
	if idx := p.Indices; idx != nil {
		dev.DrawElements(p.Mode, idx.Count, idx.ComponentType, idx.ByteOffset)
		return
	}
	dev.DrawArrays(p.Mode, 0, p.VertexCount())
}
