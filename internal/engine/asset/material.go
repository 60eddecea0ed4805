package asset

import "image"

// Filter values match the glTF sampler enums.
type Filter int

const (
	FilterNearest              Filter = 9728
	FilterLinear               Filter = 9729
	FilterNearestMipmapNearest Filter = 9984
	FilterLinearMipmapNearest  Filter = 9985
	FilterNearestMipmapLinear  Filter = 9986
	FilterLinearMipmapLinear   Filter = 9987
)

// UsesMipmaps reports whether f samples from a mipmap chain.
func (f Filter) UsesMipmaps() bool {
	return f >= FilterNearestMipmapNearest && f <= FilterLinearMipmapLinear
}

// Wrap values match the glTF sampler enums.
type Wrap int

const (
	WrapRepeat         Wrap = 10497
	WrapClampToEdge    Wrap = 33071
	WrapMirroredRepeat Wrap = 33648
)

// Sampler describes texture filtering and wrapping.
type Sampler struct {
	ID        ID
	MagFilter Filter
	MinFilter Filter
	WrapS     Wrap
	WrapT     Wrap
}

// NewSampler returns a sampler with the linear/repeat defaults.
func NewSampler() *Sampler {
	return &Sampler{
		ID:        NextID(),
		MagFilter: FilterLinear,
		MinFilter: FilterLinear,
		WrapS:     WrapRepeat,
		WrapT:     WrapRepeat,
	}
}

// Image is decoded pixel data.
type Image struct {
	ID     ID
	Name   string
	Pixels *image.RGBA
}

// NewImage wraps decoded pixels.
func NewImage(name string, pixels *image.RGBA) *Image {
	return &Image{ID: NextID(), Name: name, Pixels: pixels}
}

// Texture pairs a sampler with a source image.
type Texture struct {
	ID      ID
	Sampler *Sampler
	Image   *Image

	// HasMipmaps is set the first time a mipmap chain is generated.
	HasMipmaps bool
}

// NewTexture creates a texture. A nil sampler gets the defaults.
func NewTexture(img *Image, s *Sampler) *Texture {
	if s == nil {
		s = NewSampler()
	}
	return &Texture{ID: NextID(), Sampler: s, Image: img}
}

// AlphaMode controls how alpha is interpreted.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Material is a metallic-roughness surface description.
type Material struct {
	ID   ID
	Name string

	BaseColorTexture *Texture
	BaseColorFactor  [4]float32

	MetallicRoughnessTexture *Texture
	MetallicFactor           float32
	RoughnessFactor          float32

	NormalTexture *Texture
	NormalScale   float32

	OcclusionTexture  *Texture
	OcclusionStrength float32

	EmissiveTexture *Texture
	EmissiveFactor  [3]float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool
}

// NewMaterial returns a material with glTF default factors.
func NewMaterial(name string) *Material {
	return &Material{
		ID:                NextID(),
		Name:              name,
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		MetallicFactor:    1,
		RoughnessFactor:   1,
		NormalScale:       1,
		OcclusionStrength: 1,
		AlphaMode:         AlphaOpaque,
		AlphaCutoff:       0.5,
	}
}

var defaultMaterial = NewMaterial("default")

// DefaultMaterial returns the shared material used by primitives without one.
func DefaultMaterial() *Material {
	return defaultMaterial
}
