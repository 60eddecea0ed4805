// Package scene provides the node graph a viewer renders: an arena of nodes
// arranged as an ordered forest, each with a pose, a pending per-frame delta
// and an optional mesh, camera or light payload.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/pkg/math"
)

// Scene owns every node and the ordered list of roots.
type Scene struct {
	nodes []*Node
	roots []NodeID
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// NewNode allocates a detached node. Attach it with AddRoot or AddChild.
func (s *Scene) NewNode(name string) *Node {
	n := newNode(NodeID(len(s.nodes)), name)
	s.nodes = append(s.nodes, n)
	return n
}

// Node returns the node for id, or nil if id is out of range.
func (s *Scene) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// Len returns the number of nodes in the arena, attached or not.
func (s *Scene) Len() int { return len(s.nodes) }

// Roots returns the root handles in order. The slice must not be modified.
func (s *Scene) Roots() []NodeID { return s.roots }

// AddRoot appends a detached node to the root list.
func (s *Scene) AddRoot(id NodeID) error {
	n := s.Node(id)
	if n == nil {
		return fmt.Errorf("add root: unknown node %d", id)
	}
	if n.parent != NoNode || s.isRoot(id) {
		return fmt.Errorf("add root: node %d (%s) is already attached", id, n.Name)
	}
	s.roots = append(s.roots, id)
	return nil
}

// AddChild appends child to parent's children, detaching it from wherever
// it was before.
func (s *Scene) AddChild(parent, child NodeID) error {
	p, c := s.Node(parent), s.Node(child)
	if p == nil || c == nil {
		return fmt.Errorf("add child: unknown node %d or %d", parent, child)
	}
	for a := parent; a != NoNode; a = s.nodes[a].parent {
		if a == child {
			return fmt.Errorf("add child: node %d is an ancestor of %d", child, parent)
		}
	}

	s.detach(child)
	p.children = append(p.children, child)
	c.parent = parent
	return nil
}

// RemoveChild detaches child from parent. It reports whether child was found.
func (s *Scene) RemoveChild(parent, child NodeID) bool {
	p := s.Node(parent)
	if p == nil {
		return false
	}
	for i, id := range p.children {
		if id == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			s.nodes[child].parent = NoNode
			return true
		}
	}
	return false
}

// RemoveRoot drops id from the root list.
func (s *Scene) RemoveRoot(id NodeID) bool {
	for i, r := range s.roots {
		if r == id {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) detach(id NodeID) {
	if p := s.nodes[id].parent; p != NoNode {
		s.RemoveChild(p, id)
		return
	}
	s.RemoveRoot(id)
}

func (s *Scene) isRoot(id NodeID) bool {
	for _, r := range s.roots {
		if r == id {
			return true
		}
	}
	return false
}

// Clone deep-copies the subtree at id and returns the detached copy.
// Mesh, camera and light payloads are shared with the original.
func (s *Scene) Clone(id NodeID) NodeID {
	src := s.Node(id)
	if src == nil {
		return NoNode
	}

	dst := s.NewNode(src.Name)
	dst.Pose = src.Pose
	dst.delta = src.delta
	dst.folded = src.folded
	dst.transform = src.transform
	dst.Mesh = src.Mesh
	dst.Camera = src.Camera
	dst.Light = src.Light

	for _, c := range src.children {
		cc := s.Clone(c)
		dst.children = append(dst.children, cc)
		s.nodes[cc].parent = dst.id
	}
	return dst.id
}

// Traverse walks every root in order depth-first, calling before on entry
// and after on exit. Either callback may be nil.
func (s *Scene) Traverse(before, after func(*Node)) {
	for _, r := range s.roots {
		s.traverse(r, before, after)
	}
}

func (s *Scene) traverse(id NodeID, before, after func(*Node)) {
	n := s.nodes[id]
	if before != nil {
		before(n)
	}
	for _, c := range n.children {
		s.traverse(c, before, after)
	}
	if after != nil {
		after(n)
	}
}

// WalkFunc receives a node with its accumulated model matrix. The matrix
// carries the world rotation composed from local rotors down the walk.
type WalkFunc func(n *Node, model mgl32.Mat4)

// Walk is a pre-order traversal that accumulates local pose matrices from the
// roots down.
func (s *Scene) Walk(fn WalkFunc) {
	for _, r := range s.roots {
		s.walk(r, mgl32.Ident4(), fn)
	}
}

func (s *Scene) walk(id NodeID, parent mgl32.Mat4, fn WalkFunc) {
	n := s.nodes[id]
	model := parent.Mul4(n.LocalMatrix())
	fn(n, model)
	for _, c := range n.children {
		s.walk(c, model, fn)
	}
}

// UpdateTransforms folds each node's pending delta into its pose and
// recomputes cached world positions, parents before children.
func (s *Scene) UpdateTransforms() {
	s.Traverse(func(n *Node) {
		n.fold()
		n.compose(s.Node(n.parent))
	}, nil)
}

// WorldMatrix returns the product of local matrices from the root to id.
func (s *Scene) WorldMatrix(id NodeID) mgl32.Mat4 {
	m := mgl32.Ident4()
	for n := s.Node(id); n != nil; n = s.Node(n.parent) {
		m = n.LocalMatrix().Mul4(m)
	}
	return m
}

// ViewMatrix returns the inverse of the world matrix of id.
func (s *Scene) ViewMatrix(id NodeID) mgl32.Mat4 {
	return s.WorldMatrix(id).Inv()
}

// WorldPosition returns the origin of id in world space.
func (s *Scene) WorldPosition(id NodeID) math.Vec3 {
	c := s.WorldMatrix(id).Col(3)
	return math.Vec3{X: c.X(), Y: c.Y(), Z: c.Z()}
}

// FindByName returns the first attached node with the given name in
// traversal order, or NoNode.
func (s *Scene) FindByName(name string) NodeID {
	return s.find(func(n *Node) bool { return n.Name == name })
}

// FirstCamera returns the first attached node carrying a camera, or NoNode.
func (s *Scene) FirstCamera() NodeID {
	return s.find(func(n *Node) bool { return n.Camera != nil })
}

// Lights returns every attached node carrying a light, in traversal order.
func (s *Scene) Lights() []NodeID {
	var ids []NodeID
	s.Traverse(func(n *Node) {
		if n.Light != nil {
			ids = append(ids, n.id)
		}
	}, nil)
	return ids
}

func (s *Scene) find(match func(*Node) bool) NodeID {
	found := NoNode
	s.Traverse(func(n *Node) {
		if found == NoNode && match(n) {
			found = n.id
		}
	}, nil)
	return found
}
