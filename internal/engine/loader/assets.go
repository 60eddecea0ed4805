package loader

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	lightspunctual "github.com/qmuntal/gltf/ext/lightspuntual"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/internal/engine/texture"
	"github.com/Faultbox/rotorview/pkg/math"
)

func (b *builder) mesh(idx uint32) (*asset.Mesh, error) {
	if m, ok := b.meshes[idx]; ok {
		return m, nil
	}
	if int(idx) >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}

	src := b.doc.Meshes[idx]
	m := asset.NewMesh(src.Name)
	for i, sp := range src.Primitives {
		p, err := b.primitive(sp)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, i, err)
		}
		m.Primitives = append(m.Primitives, p)
	}

	b.meshes[idx] = m
	return m, nil
}

func (b *builder) primitive(src *gltf.Primitive) (*asset.Primitive, error) {
	attrs := make(map[string]*asset.Accessor, len(src.Attributes))
	for name, ai := range src.Attributes {
		a, err := b.accessor(ai, asset.TargetArrayBuffer)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		attrs[name] = a
	}
	if attrs[asset.AttrPosition] == nil {
		return nil, fmt.Errorf("missing %s attribute", asset.AttrPosition)
	}

	var indices *asset.Accessor
	if src.Indices != nil {
		a, err := b.accessor(*src.Indices, asset.TargetElementArrayBuffer)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indices = a
	}

	p := asset.NewPrimitive(attrs, indices)
	p.Mode = primitiveMode(src.Mode)
	if src.Material != nil {
		mat, err := b.material(*src.Material)
		if err != nil {
			return nil, err
		}
		p.Material = mat
	}
	return p, nil
}

func (b *builder) accessor(idx uint32, usage asset.BufferTarget) (*asset.Accessor, error) {
	if a, ok := b.accessors[idx]; ok {
		return a, nil
	}
	if int(idx) >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}

	src := b.doc.Accessors[idx]
	if src.BufferView == nil {
		return nil, fmt.Errorf("accessor %d has no buffer view", idx)
	}
	n := accessorComponents(src.Type)
	if n == 0 {
		return nil, fmt.Errorf("accessor %d: unsupported type %v", idx, src.Type)
	}
	view, err := b.bufferView(*src.BufferView, usage)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", idx, err)
	}

	a := asset.NewAccessor(view, int(src.ByteOffset), componentType(src.ComponentType), n, int(src.Count))
	a.Normalized = src.Normalized
	a.Min, a.Max = src.Min, src.Max

	if end := a.ByteOffset + (a.Count-1)*a.Stride() + n*a.ComponentType.Size(); a.Count > 0 && end > len(view.Data) {
		return nil, fmt.Errorf("accessor %d overruns its buffer view (%d > %d)", idx, end, len(view.Data))
	}

	b.accessors[idx] = a
	return a, nil
}

// bufferView slices the view out of its buffer. A view without a declared
// target takes the target of its first use.
func (b *builder) bufferView(idx uint32, usage asset.BufferTarget) (*asset.BufferView, error) {
	if v, ok := b.views[idx]; ok {
		return v, nil
	}
	if int(idx) >= len(b.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}

	src := b.doc.BufferViews[idx]
	data, err := b.viewBytes(src)
	if err != nil {
		return nil, fmt.Errorf("buffer view %d: %w", idx, err)
	}

	target := usage
	switch src.Target {
	case gltf.TargetArrayBuffer:
		target = asset.TargetArrayBuffer
	case gltf.TargetElementArrayBuffer:
		target = asset.TargetElementArrayBuffer
	}

	v := asset.NewBufferView(data, int(src.ByteStride), target)
	b.views[idx] = v
	return v, nil
}

func (b *builder) viewBytes(v *gltf.BufferView) ([]byte, error) {
	if int(v.Buffer) >= len(b.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", v.Buffer)
	}
	buf := b.doc.Buffers[v.Buffer].Data
	start, end := int(v.ByteOffset), int(v.ByteOffset)+int(v.ByteLength)
	if end > len(buf) {
		return nil, fmt.Errorf("range %d:%d exceeds buffer length %d", start, end, len(buf))
	}
	return buf[start:end], nil
}

func (b *builder) material(idx uint32) (*asset.Material, error) {
	if m, ok := b.materials[idx]; ok {
		return m, nil
	}
	if int(idx) >= len(b.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", idx)
	}

	src := b.doc.Materials[idx]
	m := asset.NewMaterial(src.Name)
	var err error

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			m.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			m.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			m.RoughnessFactor = *pbr.RoughnessFactor
		}
		if pbr.BaseColorTexture != nil {
			if m.BaseColorTexture, err = b.texture(pbr.BaseColorTexture.Index); err != nil {
				return nil, err
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			if m.MetallicRoughnessTexture, err = b.texture(pbr.MetallicRoughnessTexture.Index); err != nil {
				return nil, err
			}
		}
	}
	if nt := src.NormalTexture; nt != nil && nt.Index != nil {
		if m.NormalTexture, err = b.texture(*nt.Index); err != nil {
			return nil, err
		}
		m.NormalScale = nt.ScaleOrDefault()
	}
	if ot := src.OcclusionTexture; ot != nil && ot.Index != nil {
		if m.OcclusionTexture, err = b.texture(*ot.Index); err != nil {
			return nil, err
		}
		m.OcclusionStrength = ot.StrengthOrDefault()
	}
	if src.EmissiveTexture != nil {
		if m.EmissiveTexture, err = b.texture(src.EmissiveTexture.Index); err != nil {
			return nil, err
		}
	}
	m.EmissiveFactor = src.EmissiveFactor

	switch src.AlphaMode {
	case gltf.AlphaMask:
		m.AlphaMode = asset.AlphaMask
	case gltf.AlphaBlend:
		m.AlphaMode = asset.AlphaBlend
	}
	if src.AlphaCutoff != nil {
		m.AlphaCutoff = *src.AlphaCutoff
	}
	m.DoubleSided = src.DoubleSided

	b.materials[idx] = m
	return m, nil
}

func (b *builder) texture(idx uint32) (*asset.Texture, error) {
	if t, ok := b.textures[idx]; ok {
		return t, nil
	}
	if int(idx) >= len(b.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", idx)
	}

	src := b.doc.Textures[idx]
	if src.Source == nil {
		return nil, fmt.Errorf("texture %d has no source image", idx)
	}
	img, err := b.image(*src.Source)
	if err != nil {
		return nil, fmt.Errorf("texture %d: %w", idx, err)
	}
	var smp *asset.Sampler
	if src.Sampler != nil {
		if smp, err = b.sampler(*src.Sampler); err != nil {
			return nil, fmt.Errorf("texture %d: %w", idx, err)
		}
	}

	t := asset.NewTexture(img, smp)
	b.textures[idx] = t
	return t, nil
}

func (b *builder) sampler(idx uint32) (*asset.Sampler, error) {
	if s, ok := b.samplers[idx]; ok {
		return s, nil
	}
	if int(idx) >= len(b.doc.Samplers) {
		return nil, fmt.Errorf("sampler %d out of range", idx)
	}

	src := b.doc.Samplers[idx]
	s := asset.NewSampler()
	s.MagFilter = magFilter(src.MagFilter)
	s.MinFilter = minFilter(src.MinFilter)
	s.WrapS = wrapMode(src.WrapS)
	s.WrapT = wrapMode(src.WrapT)

	b.samplers[idx] = s
	return s, nil
}

func (b *builder) image(idx uint32) (*asset.Image, error) {
	if img, ok := b.images[idx]; ok {
		return img, nil
	}
	if int(idx) >= len(b.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", idx)
	}

	src := b.doc.Images[idx]
	data, err := b.imageBytes(src)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", idx, err)
	}
	pixels, format, err := texture.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", idx, err)
	}
	if fitted := texture.Fit(pixels, texture.MaxSize); fitted != pixels {
		b.log.Warn("image downscaled",
			zap.String("name", src.Name),
			zap.Int("width", pixels.Rect.Dx()),
			zap.Int("height", pixels.Rect.Dy()),
		)
		pixels = fitted
	}
	b.log.Debug("image decoded", zap.Uint32("index", idx), zap.String("format", format))

	img := asset.NewImage(src.Name, pixels)
	b.images[idx] = img
	return img, nil
}

// imageBytes resolves an image from a buffer view, a data URI, or a file
// relative to the document.
func (b *builder) imageBytes(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if int(*img.BufferView) >= len(b.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		return b.viewBytes(b.doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		name, err := url.PathUnescape(img.URI)
		if err != nil {
			name = img.URI
		}
		return os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(name)))
	default:
		return nil, fmt.Errorf("image has no data")
	}
}

// documentLights returns the KHR_lights_punctual light list, if any.
func documentLights(doc *gltf.Document) []*lightspunctual.Light {
	switch v := doc.Extensions[lightspunctual.ExtensionName].(type) {
	case lightspunctual.Lights:
		return v
	case []*lightspunctual.Light:
		return v
	}
	return nil
}

func nodeLight(n *gltf.Node) (uint32, bool) {
	if v, ok := n.Extensions[lightspunctual.ExtensionName].(lightspunctual.LightIndex); ok {
		return uint32(v), true
	}
	return 0, false
}

// light converts a punctual light. Each referencing node gets its own copy
// so lights can be adjusted independently.
func (b *builder) light(idx uint32) (*scene.Light, error) {
	if int(idx) >= len(b.lights) {
		return nil, fmt.Errorf("light %d out of range", idx)
	}

	src := b.lights[idx]
	color := math.Vec3From(src.ColorOrDefault())
	intensity := src.IntensityOrDefault()

	var l *scene.Light
	switch src.Type {
	case lightspunctual.TypePoint:
		l = scene.NewPointLight(color, intensity)
	case lightspunctual.TypeSpot:
		l = scene.NewSpotLight(color, intensity)
		if src.Spot != nil {
			l.InnerConeAngle = src.Spot.InnerConeAngle
			l.OuterConeAngle = src.Spot.OuterConeAngleOrDefault()
		}
	default:
		return nil, fmt.Errorf("%w: %q (light %d)", ErrUnsupportedLight, src.Type, idx)
	}
	l.Name = src.Name
	if src.Range != nil {
		l.Range = *src.Range
	}
	return l, nil
}

func accessorComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4:
		return 4
	default:
		return 0
	}
}

func componentType(c gltf.ComponentType) asset.ComponentType {
	switch c {
	case gltf.ComponentByte:
		return asset.Byte
	case gltf.ComponentUbyte:
		return asset.UnsignedByte
	case gltf.ComponentShort:
		return asset.Short
	case gltf.ComponentUshort:
		return asset.UnsignedShort
	case gltf.ComponentUint:
		return asset.UnsignedInt
	default:
		return asset.Float
	}
}

func primitiveMode(m gltf.PrimitiveMode) asset.Mode {
	switch m {
	case gltf.PrimitivePoints:
		return asset.Points
	case gltf.PrimitiveLines:
		return asset.Lines
	case gltf.PrimitiveLineLoop:
		return asset.LineLoop
	case gltf.PrimitiveLineStrip:
		return asset.LineStrip
	case gltf.PrimitiveTriangleStrip:
		return asset.TriangleStrip
	case gltf.PrimitiveTriangleFan:
		return asset.TriangleFan
	default:
		return asset.Triangles
	}
}

func magFilter(f gltf.MagFilter) asset.Filter {
	if f == gltf.MagNearest {
		return asset.FilterNearest
	}
	return asset.FilterLinear
}

func minFilter(f gltf.MinFilter) asset.Filter {
	switch f {
	case gltf.MinNearest:
		return asset.FilterNearest
	case gltf.MinNearestMipMapNearest:
		return asset.FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		return asset.FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		return asset.FilterNearestMipmapLinear
	case gltf.MinLinearMipMapLinear:
		return asset.FilterLinearMipmapLinear
	default:
		return asset.FilterLinear
	}
}

func wrapMode(w gltf.WrappingMode) asset.Wrap {
	switch w {
	case gltf.WrapClampToEdge:
		return asset.WrapClampToEdge
	case gltf.WrapMirroredRepeat:
		return asset.WrapMirroredRepeat
	default:
		return asset.WrapRepeat
	}
}
