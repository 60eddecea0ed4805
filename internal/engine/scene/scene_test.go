package scene

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/pkg/math"
)

// buildTree creates
//
//	a
//	├── b
//	│   └── d
//	└── c
//	e
func buildTree(t *testing.T) (*Scene, map[string]NodeID) {
	t.Helper()
	s := New()
	ids := make(map[string]NodeID)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ids[name] = s.NewNode(name).ID()
	}
	require.NoError(t, s.AddRoot(ids["a"]))
	require.NoError(t, s.AddRoot(ids["e"]))
	require.NoError(t, s.AddChild(ids["a"], ids["b"]))
	require.NoError(t, s.AddChild(ids["a"], ids["c"]))
	require.NoError(t, s.AddChild(ids["b"], ids["d"]))
	return s, ids
}

func TestTraverseOrder(t *testing.T) {
	s, _ := buildTree(t)

	var pre, post []string
	s.Traverse(
		func(n *Node) { pre = append(pre, n.Name) },
		func(n *Node) { post = append(post, n.Name) },
	)

	assert.Equal(t, []string{"a", "b", "d", "c", "e"}, pre)
	assert.Equal(t, []string{"d", "b", "c", "a", "e"}, post)
}

func TestTraverseParentBeforeChildren(t *testing.T) {
	s, _ := buildTree(t)

	visited := make(map[NodeID]bool)
	s.Traverse(func(n *Node) {
		if p := n.Parent(); p != NoNode {
			assert.True(t, visited[p], "%s visited before its parent", n.Name)
		}
		visited[n.ID()] = true
	}, nil)
	assert.Len(t, visited, 5)
}

func TestWalkMatchesTraverseOrder(t *testing.T) {
	s, _ := buildTree(t)

	var traversed, walked []NodeID
	s.Traverse(func(n *Node) { traversed = append(traversed, n.ID()) }, nil)
	s.Walk(func(n *Node, _ mgl32.Mat4) { walked = append(walked, n.ID()) })
	assert.Equal(t, traversed, walked)
}

func TestWalkModelCarriesWorldRotation(t *testing.T) {
	s := New()
	parent := s.NewNode("parent")
	parent.Pose.Rotation = math.RotorFromAxisAngle(gomath.Pi/2, math.Vec3{Z: 1})
	child := s.NewNode("child")
	child.Pose.Rotation = math.RotorFromAxisAngle(gomath.Pi/2, math.Vec3{X: 1})
	require.NoError(t, s.AddRoot(parent.ID()))
	require.NoError(t, s.AddChild(parent.ID(), child.ID()))

	var up mgl32.Vec4
	s.Walk(func(n *Node, model mgl32.Mat4) {
		if n.ID() == child.ID() {
			up = model.Mul4x1(mgl32.Vec4{0, 1, 0, 0})
		}
	})

	got := up.Vec3()
	// child turns +Y to +Z, then the parent's turn about Z leaves it there
	assert.InDeltaSlice(t, []float32{0, 0, 1}, got[:], 1e-5)
	world := math.Vec3{Y: 1}.Rotate(parent.Pose.Rotation.Mul(child.Pose.Rotation))
	assert.InDeltaSlice(t, []float32{world.X, world.Y, world.Z}, got[:], 1e-5)
}

func TestRootWorldTransform(t *testing.T) {
	s := New()
	n := s.NewNode("root")
	n.Pose.Translation = math.Vec3{X: 1}
	require.NoError(t, s.AddRoot(n.ID()))

	s.UpdateTransforms()

	assert.Equal(t, math.Vec3{X: 1}, n.Transform())
	assert.Equal(t, NoNode, n.Parent())
}

func TestChildWorldTransform(t *testing.T) {
	s := New()
	parent := s.NewNode("parent")
	parent.Pose.Translation = math.Vec3{X: 1}
	child := s.NewNode("child")
	child.Pose.Translation = math.Vec3{Y: 1}
	require.NoError(t, s.AddRoot(parent.ID()))
	require.NoError(t, s.AddChild(parent.ID(), child.ID()))

	s.UpdateTransforms()

	assert.Equal(t, math.Vec3{X: 1}, parent.Transform())
	assert.Equal(t, math.Vec3{X: 1, Y: 1}, child.Transform())
}

func TestRootTransformIgnoresOwnRotationAndScale(t *testing.T) {
	s := New()
	n := s.NewNode("root")
	n.Pose.Translation = math.Vec3{X: 1}
	n.Pose.Rotation = math.RotorFromAxisAngle(gomath.Pi/2, math.Vec3{Z: 1})
	n.Pose.Scale = math.Vec3{X: 2, Y: 2, Z: 2}
	require.NoError(t, s.AddRoot(n.ID()))

	s.UpdateTransforms()

	assert.Equal(t, math.Vec3{X: 1}, n.Transform())
	assert.True(t, s.WorldPosition(n.ID()).ApproxEqual(n.Transform(), 1e-6))
}

func TestChildTransformUsesParentScaleAndRotation(t *testing.T) {
	quarterZ := math.RotorFromAxisAngle(gomath.Pi/2, math.Vec3{Z: 1})
	tests := []struct {
		name        string
		parentScale math.Vec3
		parentRot   math.Rotor
		childScale  math.Vec3
		childRot    math.Rotor
		want        math.Vec3
	}{
		{"unit parent", math.One, math.RotorIdentity(), math.One, math.RotorIdentity(), math.Vec3{X: 1, Y: 1}},
		{"scaled parent", math.Vec3{X: 2, Y: 2, Z: 2}, math.RotorIdentity(), math.One, math.RotorIdentity(), math.Vec3{X: 2, Y: 2}},
		{"non-uniform parent", math.Vec3{X: 3, Y: 0.5, Z: 1}, math.RotorIdentity(), math.One, math.RotorIdentity(), math.Vec3{X: 3, Y: 0.5}},
		{"rotated parent", math.One, quarterZ, math.One, math.RotorIdentity(), math.Vec3{X: -1, Y: 1}},
		{"child pose does not apply", math.Vec3{X: 2, Y: 2, Z: 2}, math.RotorIdentity(), math.Vec3{X: 5, Y: 5, Z: 5}, quarterZ, math.Vec3{X: 2, Y: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			parent := s.NewNode("parent")
			parent.Pose.Translation = math.Vec3{X: 1}
			parent.Pose.Scale = tt.parentScale
			parent.Pose.Rotation = tt.parentRot
			child := s.NewNode("child")
			child.Pose.Translation = math.Vec3{Y: 1}
			child.Pose.Scale = tt.childScale
			child.Pose.Rotation = tt.childRot
			require.NoError(t, s.AddRoot(parent.ID()))
			require.NoError(t, s.AddChild(parent.ID(), child.ID()))

			s.UpdateTransforms()

			assert.Equal(t, math.Vec3{X: 1}, parent.Transform())
			assert.True(t, child.Transform().ApproxEqual(tt.want, 1e-5), "got %v", child.Transform())
		})
	}
}

func TestClearTransformsYieldsIdentityDelta(t *testing.T) {
	s := New()
	n := s.NewNode("mover")
	require.NoError(t, s.AddRoot(n.ID()))

	n.Translate(math.Vec3{X: 2, Y: -1})
	n.Rotate(math.RotorFromAxisAngle(0.5, math.Vec3{Y: 1}))
	n.ScaleBy(math.Vec3{X: 2, Y: 2, Z: 2})
	require.False(t, n.Delta().IsIdentity())

	n.ClearTransforms()

	d := n.Delta()
	assert.Equal(t, math.Vec3{}, d.Translation)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, d.Scale)
	assert.Equal(t, math.RotorIdentity(), d.Rotation)
}

func TestDeltaFoldedOncePerFrame(t *testing.T) {
	s := New()
	n := s.NewNode("mover")
	require.NoError(t, s.AddRoot(n.ID()))

	n.Translate(math.Vec3{X: 1})
	s.UpdateTransforms()
	s.UpdateTransforms()
	assert.Equal(t, math.Vec3{X: 1}, n.Pose.Translation, "second update must not re-apply the delta")

	// the renderer clears after drawing; the pose persists
	n.ClearTransforms()
	s.UpdateTransforms()
	assert.Equal(t, math.Vec3{X: 1}, n.Transform())

	// movement queued without an intervening render still lands
	n.Translate(math.Vec3{Z: 1})
	n.ClearTransforms()
	n.Translate(math.Vec3{Z: 2})
	s.UpdateTransforms()
	n.Translate(math.Vec3{Z: 3})
	s.UpdateTransforms()
	assert.Equal(t, math.Vec3{X: 1, Z: 5}, n.Pose.Translation)
}

func TestFoldComposesRotationAndRenormalizes(t *testing.T) {
	s := New()
	n := s.NewNode("spinner")
	require.NoError(t, s.AddRoot(n.ID()))

	step := math.RotorFromAxisAngle(0.01, math.Vec3{Y: 1})
	for i := 0; i < 5000; i++ {
		n.Rotate(step)
		s.UpdateTransforms()
		n.ClearTransforms()
	}

	m := float64(n.Pose.Rotation.Magnitude())
	assert.InDelta(t, 1, m, 2e-4)

	want := math.RotorFromAxisAngle(50, math.Vec3{Y: 1})
	got := math.Vec3{X: 1}.Rotate(n.Pose.Rotation)
	assert.True(t, got.ApproxEqual(math.Vec3{X: 1}.Rotate(want), 1e-2), "got %v", got)
}

func TestAddChildReparents(t *testing.T) {
	s, ids := buildTree(t)

	require.NoError(t, s.AddChild(ids["e"], ids["d"]))
	assert.Equal(t, ids["e"], s.Node(ids["d"]).Parent())
	assert.Empty(t, s.Node(ids["b"]).Children())
	assert.Equal(t, []NodeID{ids["d"]}, s.Node(ids["e"]).Children())

	// moving a root under another node removes it from the root list
	require.NoError(t, s.AddChild(ids["a"], ids["e"]))
	assert.Equal(t, []NodeID{ids["a"]}, s.Roots())

	assert.Error(t, s.AddChild(ids["d"], ids["a"]), "cycles are rejected")
	assert.Error(t, s.AddRoot(ids["b"]), "attached nodes cannot become roots")
}

func TestRemoveChild(t *testing.T) {
	s, ids := buildTree(t)

	assert.True(t, s.RemoveChild(ids["a"], ids["b"]))
	assert.Equal(t, NoNode, s.Node(ids["b"]).Parent())
	assert.Equal(t, []NodeID{ids["c"]}, s.Node(ids["a"]).Children())
	assert.False(t, s.RemoveChild(ids["a"], ids["b"]))

	var names []string
	s.Traverse(func(n *Node) { names = append(names, n.Name) }, nil)
	assert.Equal(t, []string{"a", "c", "e"}, names)
}

func TestCloneSubtree(t *testing.T) {
	s, ids := buildTree(t)
	mesh := asset.NewMesh("cube")
	light := NewPointLight(math.Vec3{X: 1, Y: 1, Z: 1}, 2)
	s.Node(ids["b"]).Mesh = mesh
	s.Node(ids["d"]).Light = light
	s.Node(ids["d"]).Pose.Translation = math.Vec3{Z: 4}

	cloneID := s.Clone(ids["b"])
	require.NotEqual(t, NoNode, cloneID)

	clone := s.Node(cloneID)
	assert.NotEqual(t, ids["b"], cloneID)
	assert.Equal(t, NoNode, clone.Parent())
	assert.Same(t, mesh, clone.Mesh)
	require.Len(t, clone.Children(), 1)

	childClone := s.Node(clone.Children()[0])
	assert.NotEqual(t, ids["d"], childClone.ID())
	assert.Equal(t, cloneID, childClone.Parent())
	assert.Same(t, light, childClone.Light)
	assert.Equal(t, math.Vec3{Z: 4}, childClone.Pose.Translation)

	// the copy is independent of the original
	childClone.Pose.Translation = math.Vec3{}
	assert.Equal(t, math.Vec3{Z: 4}, s.Node(ids["d"]).Pose.Translation)
	assert.Equal(t, []NodeID{ids["d"]}, s.Node(ids["b"]).Children())
}

func TestWorldMatrixAndView(t *testing.T) {
	s := New()
	parent := s.NewNode("parent")
	parent.Pose.Translation = math.Vec3{X: 10}
	parent.Pose.Rotation = math.RotorFromAxisAngle(gomath.Pi/2, math.Vec3{Y: 1})
	child := s.NewNode("child")
	child.Pose.Translation = math.Vec3{X: 1}
	require.NoError(t, s.AddRoot(parent.ID()))
	require.NoError(t, s.AddChild(parent.ID(), child.ID()))

	// +X rotated a quarter turn about Y points to -Z
	pos := s.WorldPosition(child.ID())
	assert.True(t, pos.ApproxEqual(math.Vec3{X: 10, Z: -1}, 1e-5), "got %v", pos)

	view := s.ViewMatrix(child.ID())
	origin := view.Mul4x1(pos.Vec().Vec4(1))
	assert.InDelta(t, 0, origin.Len()-1, 1e-4, "child position maps to the view origin")

	var walked [3]float32
	s.Walk(func(n *Node, model mgl32.Mat4) {
		if n.ID() == child.ID() {
			c := model.Col(3)
			walked = [3]float32{c.X(), c.Y(), c.Z()}
		}
	})
	assert.InDeltaSlice(t, []float32{10, 0, -1}, walked[:], 1e-5)
}

func TestFindHelpers(t *testing.T) {
	s, ids := buildTree(t)
	s.Node(ids["c"]).Camera = &Perspective{AspectRatio: 1, YFov: 1, ZNear: 0.1, ZFar: 10}
	s.Node(ids["d"]).Light = NewPointLight(math.One, 1)
	s.Node(ids["e"]).Light = NewSpotLight(math.One, 1)

	assert.Equal(t, ids["d"], s.FindByName("d"))
	assert.Equal(t, NoNode, s.FindByName("missing"))
	assert.Equal(t, ids["c"], s.FirstCamera())
	assert.Equal(t, []NodeID{ids["d"], ids["e"]}, s.Lights())
	assert.Nil(t, s.Node(99))
	assert.Nil(t, s.Node(NoNode))
}
