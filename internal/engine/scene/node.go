package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/pkg/math"
)

// NodeID is a handle into a Scene's node arena.
type NodeID int

// NoNode marks the absent parent of a root or detached node.
const NoNode NodeID = -1

// renormalizeEpsilon is how far a rotor's magnitude may drift from 1 before
// the fold step rescales it.
const renormalizeEpsilon = 1e-4

// Pose is a translation, rotation and scale.
type Pose struct {
	Translation math.Vec3
	Rotation    math.Rotor
	Scale       math.Vec3
}

// IdentityPose returns zero translation, identity rotation and unit scale.
func IdentityPose() Pose {
	return Pose{Rotation: math.RotorIdentity(), Scale: math.One}
}

// IsIdentity reports whether p is exactly the identity pose.
func (p Pose) IsIdentity() bool {
	return p == IdentityPose()
}

// Matrix returns T·R·S.
func (p Pose) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Translation.X, p.Translation.Y, p.Translation.Z)
	s := mgl32.Scale3D(p.Scale.X, p.Scale.Y, p.Scale.Z)
	return t.Mul4(p.Rotation.Mat4()).Mul4(s)
}

// Node is an entry in a Scene's arena. It keeps a persistent Pose and a
// pending delta that interaction code accumulates between frames.
//
// Each frame Scene.UpdateTransforms folds the delta into the pose once and
// recomputes the cached world Transform. The main pass calls ClearTransforms
// after drawing the node, which resets the delta to identity.
type Node struct {
	Name string
	Pose Pose

	Mesh   *asset.Mesh
	Camera Camera
	Light  *Light

	id        NodeID
	parent    NodeID
	children  []NodeID
	delta     Pose
	folded    bool
	transform math.Vec3
}

func newNode(id NodeID, name string) *Node {
	return &Node{
		Name:   name,
		Pose:   IdentityPose(),
		id:     id,
		parent: NoNode,
		delta:  IdentityPose(),
	}
}

// ID returns the node's arena handle.
func (n *Node) ID() NodeID { return n.id }

// Parent returns the parent handle, or NoNode.
func (n *Node) Parent() NodeID { return n.parent }

// Children returns the child handles in order. The slice must not be modified.
func (n *Node) Children() []NodeID { return n.children }

// Transform returns the cached world position computed by UpdateTransforms.
func (n *Node) Transform() math.Vec3 { return n.transform }

// Delta returns the pending transform update.
func (n *Node) Delta() Pose { return n.delta }

// Translate queues a translation for the next frame.
func (n *Node) Translate(v math.Vec3) {
	n.reopen()
	n.delta.Translation = n.delta.Translation.Add(v)
}

// Rotate queues a rotation applied after any rotation already pending.
func (n *Node) Rotate(r math.Rotor) {
	n.reopen()
	n.delta.Rotation = r.Mul(n.delta.Rotation)
}

// ScaleBy queues a component-wise scale.
func (n *Node) ScaleBy(s math.Vec3) {
	n.reopen()
	n.delta.Scale = n.delta.Scale.Mul(s)
}

// ClearTransforms resets the pending delta to identity.
func (n *Node) ClearTransforms() {
	n.delta = IdentityPose()
	n.folded = false
}

// LocalMatrix returns the pose as a matrix.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	return n.Pose.Matrix()
}

// reopen starts a fresh delta when the current one was already folded but
// not yet cleared by a render.
func (n *Node) reopen() {
	if n.folded {
		n.delta = IdentityPose()
		n.folded = false
	}
}

// fold applies the pending delta to the pose exactly once.
func (n *Node) fold() {
	if n.folded {
		return
	}
	n.folded = true
	if n.delta.IsIdentity() {
		return
	}

	n.Pose.Translation = n.Pose.Translation.Add(n.delta.Translation)
	r := n.delta.Rotation.Mul(n.Pose.Rotation)
	if d := r.Magnitude() - 1; d > renormalizeEpsilon || d < -renormalizeEpsilon {
		r = r.Normalize()
	}
	n.Pose.Rotation = r
	n.Pose.Scale = n.Pose.Scale.Mul(n.delta.Scale)
}

// compose caches the world position. A root takes its translation as is; a
// child offsets by the parent's position, then applies the parent's scale and
// rotation.
func (n *Node) compose(parent *Node) {
	if parent == nil {
		n.transform = n.Pose.Translation
		return
	}
	n.transform = n.Pose.Translation.
		Add(parent.transform).
		Mul(parent.Pose.Scale).
		Rotate(parent.Pose.Rotation)
}
