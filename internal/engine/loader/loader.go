// Package loader builds a scene graph from glTF 2.0 files (.gltf or .glb).
//
// Indexed glTF objects are converted once, so every node, primitive and
// material referring to the same index shares one asset value and hits the
// same GPU cache entry.
package loader

import (
	"errors"
	"fmt"
	gomath "math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	lightspunctual "github.com/qmuntal/gltf/ext/lightspuntual"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/internal/logger"
	"github.com/Faultbox/rotorview/pkg/math"
)

var (
	// ErrUnsupportedCamera is returned for a camera with no known projection.
	ErrUnsupportedCamera = errors.New("unsupported camera type")
	// ErrUnsupportedLight is returned for light types the renderer cannot shade.
	ErrUnsupportedLight = errors.New("unsupported light type")
)

// DefaultCameraName names the camera added to scenes that have none.
const DefaultCameraName = "default-camera"

// Result is a loaded scene with its camera and light nodes.
type Result struct {
	Scene   *scene.Scene
	Camera  scene.NodeID
	Cameras []scene.NodeID
	Lights  []scene.NodeID
}

// SelectCamera makes the named camera node current. An empty name keeps the
// current camera.
func (r *Result) SelectCamera(name string) error {
	if name == "" {
		return nil
	}
	for _, id := range r.Cameras {
		if r.Scene.Node(id).Name == name {
			r.Camera = id
			return nil
		}
	}
	return fmt.Errorf("camera %q not found", name)
}

// Load reads a glTF document and converts its default scene.
func Load(path string) (*Result, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	b := newBuilder(doc, filepath.Dir(path))
	res, err := b.build()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	b.log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("nodes", res.Scene.Len()),
		zap.Int("meshes", len(b.meshes)),
		zap.Int("cameras", len(res.Cameras)),
		zap.Int("lights", len(res.Lights)),
	)
	return res, nil
}

// builder converts glTF indices to shared asset values, memoizing each.
type builder struct {
	doc *gltf.Document
	dir string
	log *zap.Logger

	views     map[uint32]*asset.BufferView
	accessors map[uint32]*asset.Accessor
	samplers  map[uint32]*asset.Sampler
	images    map[uint32]*asset.Image
	textures  map[uint32]*asset.Texture
	materials map[uint32]*asset.Material
	meshes    map[uint32]*asset.Mesh
	cameras   map[uint32]scene.Camera
	lights    []*lightspunctual.Light

	scene *scene.Scene
	res   *Result
}

func newBuilder(doc *gltf.Document, dir string) *builder {
	s := scene.New()
	return &builder{
		doc:       doc,
		dir:       dir,
		log:       logger.Named("loader"),
		views:     make(map[uint32]*asset.BufferView),
		accessors: make(map[uint32]*asset.Accessor),
		samplers:  make(map[uint32]*asset.Sampler),
		images:    make(map[uint32]*asset.Image),
		textures:  make(map[uint32]*asset.Texture),
		materials: make(map[uint32]*asset.Material),
		meshes:    make(map[uint32]*asset.Mesh),
		cameras:   make(map[uint32]scene.Camera),
		scene:     s,
		res:       &Result{Scene: s, Camera: scene.NoNode},
	}
}

func (b *builder) build() (*Result, error) {
	b.lights = documentLights(b.doc)

	for _, idx := range b.rootNodes() {
		id, err := b.node(idx)
		if err != nil {
			return nil, err
		}
		if err := b.scene.AddRoot(id); err != nil {
			return nil, err
		}
	}

	if len(b.res.Cameras) == 0 {
		b.addDefaultCamera()
	}
	b.res.Camera = b.res.Cameras[0]
	return b.res, nil
}

// rootNodes returns the default scene's roots, or every parentless node when
// the document declares no scenes.
func (b *builder) rootNodes() []uint32 {
	if len(b.doc.Scenes) > 0 {
		i := 0
		if b.doc.Scene != nil && int(*b.doc.Scene) < len(b.doc.Scenes) {
			i = int(*b.doc.Scene)
		}
		return b.doc.Scenes[i].Nodes
	}

	isChild := make(map[uint32]bool)
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []uint32
	for i := range b.doc.Nodes {
		if !isChild[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (b *builder) node(idx uint32) (scene.NodeID, error) {
	if int(idx) >= len(b.doc.Nodes) {
		return scene.NoNode, fmt.Errorf("node %d out of range", idx)
	}
	src := b.doc.Nodes[idx]
	n := b.scene.NewNode(src.Name)
	n.Pose = nodePose(src)

	if src.Mesh != nil {
		m, err := b.mesh(*src.Mesh)
		if err != nil {
			return scene.NoNode, fmt.Errorf("node %q: %w", src.Name, err)
		}
		n.Mesh = m
	}
	if src.Camera != nil {
		c, err := b.camera(*src.Camera)
		if err != nil {
			return scene.NoNode, fmt.Errorf("node %q: %w", src.Name, err)
		}
		n.Camera = c
		b.res.Cameras = append(b.res.Cameras, n.ID())
	}
	if li, ok := nodeLight(src); ok {
		l, err := b.light(li)
		if err != nil {
			return scene.NoNode, fmt.Errorf("node %q: %w", src.Name, err)
		}
		n.Light = l
		b.res.Lights = append(b.res.Lights, n.ID())
	}

	for _, c := range src.Children {
		child, err := b.node(c)
		if err != nil {
			return scene.NoNode, err
		}
		if err := b.scene.AddChild(n.ID(), child); err != nil {
			return scene.NoNode, err
		}
	}
	return n.ID(), nil
}

var identityMatrix = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// nodePose reads TRS, decomposing a matrix when one is given instead.
func nodePose(n *gltf.Node) scene.Pose {
	if n.Matrix != identityMatrix && n.Matrix != ([16]float32{}) {
		return decompose(mgl32.Mat4(n.Matrix))
	}
	return scene.Pose{
		Translation: math.Vec3From(n.Translation),
		Rotation:    math.RotorFromQuaternion(n.RotationOrDefault()),
		Scale:       math.Vec3From(n.ScaleOrDefault()),
	}
}

// decompose splits an affine matrix without shear into a pose. A zero-scale
// axis keeps its zero scale; its rotation column is rebuilt from the other two.
func decompose(m mgl32.Mat4) scene.Pose {
	t := m.Col(3)
	pose := scene.Pose{
		Translation: math.Vec3{X: t.X(), Y: t.Y(), Z: t.Z()},
		Rotation:    math.RotorIdentity(),
	}

	scale := [3]float32{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}
	pose.Scale = math.Vec3{X: scale[0], Y: scale[1], Z: scale[2]}

	var cols [3]mgl32.Vec3
	degenerate := -1
	for i, s := range scale {
		if s == 0 {
			if degenerate >= 0 {
				return pose
			}
			degenerate = i
			continue
		}
		cols[i] = m.Col(i).Vec3().Mul(1 / s)
	}
	if degenerate >= 0 {
		cols[degenerate] = cols[(degenerate+1)%3].Cross(cols[(degenerate+2)%3]).Normalize()
	}

	rot := mgl32.Mat3FromCols(cols[0], cols[1], cols[2])
	q := mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
	pose.Rotation = math.Rotor{Cosa: q.W, SinaXY: q.V.X(), SinaYZ: q.V.Y(), SinaZX: q.V.Z()}
	return pose
}

func (b *builder) camera(idx uint32) (scene.Camera, error) {
	if c, ok := b.cameras[idx]; ok {
		return c, nil
	}
	if int(idx) >= len(b.doc.Cameras) {
		return nil, fmt.Errorf("camera %d out of range", idx)
	}

	src := b.doc.Cameras[idx]
	var cam scene.Camera
	switch {
	case src.Perspective != nil:
		p := src.Perspective
		c := &scene.Perspective{AspectRatio: 16.0 / 9.0, YFov: p.Yfov, ZNear: p.Znear}
		if p.AspectRatio != nil {
			c.AspectRatio = *p.AspectRatio
		}
		if p.Zfar != nil {
			c.ZFar = *p.Zfar
		}
		cam = c
	case src.Orthographic != nil:
		o := src.Orthographic
		cam = &scene.Orthographic{
			Left: -o.Xmag, Right: o.Xmag,
			Bottom: -o.Ymag, Top: o.Ymag,
			ZNear: o.Znear, ZFar: o.Zfar,
		}
	default:
		return nil, fmt.Errorf("%w: camera %d (%s)", ErrUnsupportedCamera, idx, src.Name)
	}

	b.cameras[idx] = cam
	return cam, nil
}

// addDefaultCamera places a perspective camera a few units back from the
// origin so scenes without one can still be viewed.
func (b *builder) addDefaultCamera() {
	n := b.scene.NewNode(DefaultCameraName)
	n.Camera = &scene.Perspective{AspectRatio: 16.0 / 9.0, YFov: gomath.Pi / 4, ZNear: 0.1, ZFar: 1000}
	n.Pose.Translation = math.Vec3{Y: 1, Z: 5}
	_ = b.scene.AddRoot(n.ID())
	b.res.Cameras = append(b.res.Cameras, n.ID())
	b.log.Warn("scene has no camera, using default")
}
