// Package asset holds the CPU-side geometry, material and image data a scene
// references. Every value carries an ID assigned at construction that the
// renderer uses as its cache key.
package asset

import "sync/atomic"

// ID identifies an asset for GPU resource caching. Zero is never allocated.
type ID uint64

var lastID atomic.Uint64

// NextID allocates a new unique ID.
func NextID() ID {
	return ID(lastID.Add(1))
}

// BufferTarget is the binding point a buffer view is uploaded to.
type BufferTarget int

const (
	TargetUnspecified BufferTarget = iota
	TargetArrayBuffer
	TargetElementArrayBuffer
)

// ComponentType is the scalar type of accessor elements.
type ComponentType int

const (
	Byte ComponentType = iota
	UnsignedByte
	Short
	UnsignedShort
	UnsignedInt
	Float
)

// Size returns the byte width of one component.
func (c ComponentType) Size() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	default:
		return 4
	}
}

// Mode is the primitive topology.
type Mode int

const (
	Points Mode = iota
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

// Attribute semantics used by the renderer.
const (
	AttrPosition  = "POSITION"
	AttrNormal    = "NORMAL"
	AttrTexCoord0 = "TEXCOORD_0"
	AttrTangent   = "TANGENT"
)

// BufferView is a byte range of a raw buffer.
type BufferView struct {
	ID         ID
	Data       []byte
	ByteStride int
	Target     BufferTarget
}

// NewBufferView creates a buffer view over data.
func NewBufferView(data []byte, stride int, target BufferTarget) *BufferView {
	return &BufferView{ID: NextID(), Data: data, ByteStride: stride, Target: target}
}

// Accessor is a typed, strided view into a BufferView.
type Accessor struct {
	ID            ID
	BufferView    *BufferView
	ByteOffset    int
	ComponentType ComponentType
	Normalized    bool
	Count         int
	NumComponents int
	Min, Max      []float32
}

// NewAccessor creates an accessor of count elements with n components each.
func NewAccessor(view *BufferView, offset int, ct ComponentType, n, count int) *Accessor {
	return &Accessor{
		ID:            NextID(),
		BufferView:    view,
		ByteOffset:    offset,
		ComponentType: ct,
		Count:         count,
		NumComponents: n,
	}
}

// Stride returns the distance in bytes between consecutive elements.
func (a *Accessor) Stride() int {
	if a.BufferView != nil && a.BufferView.ByteStride > 0 {
		return a.BufferView.ByteStride
	}
	return a.NumComponents * a.ComponentType.Size()
}

// Mesh is an ordered list of primitives.
type Mesh struct {
	ID         ID
	Name       string
	Primitives []*Primitive
}

// NewMesh creates a mesh.
func NewMesh(name string, prims ...*Primitive) *Mesh {
	return &Mesh{ID: NextID(), Name: name, Primitives: prims}
}

// Primitive is one draw call's worth of geometry.
type Primitive struct {
	ID         ID
	Mode       Mode
	Attributes map[string]*Accessor
	Indices    *Accessor
	Material   *Material
}

// NewPrimitive creates a triangle primitive using the default material.
func NewPrimitive(attrs map[string]*Accessor, indices *Accessor) *Primitive {
	return &Primitive{
		ID:         NextID(),
		Mode:       Triangles,
		Attributes: attrs,
		Indices:    indices,
		Material:   DefaultMaterial(),
	}
}

// VertexCount returns the number of vertices a non-indexed draw covers.
func (p *Primitive) VertexCount() int {
	if pos := p.Attributes[AttrPosition]; pos != nil {
		return pos.Count
	}
	return 0
}
