package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/pkg/math"
)

// triangleBuffer returns three float32 positions followed by three uint16
// indices, padded to a multiple of four bytes.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, i := range []uint16{0, 1, 2} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range 4 {
		img.Set(i%2, i/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const sceneTemplate = `{
  "asset": {"version": "2.0"},
  "extensionsUsed": ["KHR_lights_punctual"],
  "extensions": {"KHR_lights_punctual": {"lights": [%s]}},
  "scene": 0,
  "scenes": [{"nodes": [0, 2, 3, 4, 5, 6]}],
  "nodes": [
    {"name": "root", "translation": [1, 0, 0], "children": [1]},
    {"name": "child", "mesh": 0, "translation": [0, 1, 0]},
    {"name": "other", "mesh": 0},
    {"name": "main", "camera": 0, "translation": [0, 0, 5]},
    {"name": "lamp", "translation": [0, 4, 0], "extensions": {"KHR_lights_punctual": {"light": 0}}},
    {"name": "scaled", "matrix": [2,0,0,0, 0,2,0,0, 0,0,2,0, 2,3,4,1]},
    {"name": "top", "camera": 1}
  ],
  "cameras": [
    {"name": "persp", "type": "perspective", "perspective": {"yfov": 0.8, "znear": 0.1, "zfar": 100, "aspectRatio": 1.5}},
    {"name": "ortho", "type": "orthographic", "orthographic": {"xmag": 2, "ymag": 1, "znear": 0.1, "zfar": 10}}
  ],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{
    "name": "red",
    "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "baseColorTexture": {"index": 0}},
    "alphaMode": "MASK",
    "alphaCutoff": 0.3,
    "doubleSided": true
  }],
  "textures": [{"source": 0, "sampler": 0}],
  "samplers": [{"magFilter": 9728, "minFilter": 9987, "wrapS": 33071}],
  "images": [{"uri": "data:image/png;base64,%s"}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [{"byteLength": 44, "uri": "data:application/octet-stream;base64,%s"}]
}`

const pointLight = `{"name": "bulb", "type": "point", "color": [1, 0.5, 0.25], "intensity": 10, "range": 20}`

func writeScene(t *testing.T, lights string) string {
	t.Helper()
	doc := fmt.Sprintf(sceneTemplate,
		lights,
		base64.StdEncoding.EncodeToString(pngBytes(t)),
		base64.StdEncoding.EncodeToString(triangleBuffer()),
	)
	path := filepath.Join(t.TempDir(), "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func loadScene(t *testing.T) *Result {
	t.Helper()
	res, err := Load(writeScene(t, pointLight))
	require.NoError(t, err)
	return res
}

func TestLoadHierarchy(t *testing.T) {
	res := loadScene(t)
	s := res.Scene

	assert.Len(t, s.Roots(), 6)
	root := s.FindByName("root")
	child := s.FindByName("child")
	require.NotEqual(t, scene.NoNode, root)
	require.NotEqual(t, scene.NoNode, child)
	assert.Equal(t, root, s.Node(child).Parent())

	s.UpdateTransforms()
	assert.True(t, s.Node(child).Transform().ApproxEqual(math.Vec3{X: 1, Y: 1}, 1e-6))
	assert.True(t, s.WorldPosition(child).ApproxEqual(math.Vec3{X: 1, Y: 1}, 1e-6))
}

func TestLoadSharesAssetsByIndex(t *testing.T) {
	res := loadScene(t)
	s := res.Scene

	a := s.Node(s.FindByName("child")).Mesh
	b := s.Node(s.FindByName("other")).Mesh
	require.NotNil(t, a)
	assert.Same(t, a, b)

	p := a.Primitives[0]
	assert.Equal(t, asset.Triangles, p.Mode)
	pos := p.Attributes[asset.AttrPosition]
	require.NotNil(t, pos)
	assert.Equal(t, 3, pos.Count)
	assert.Equal(t, 3, pos.NumComponents)
	assert.Equal(t, asset.Float, pos.ComponentType)
	assert.Equal(t, asset.TargetArrayBuffer, pos.BufferView.Target)
	assert.Len(t, pos.BufferView.Data, 36)

	require.NotNil(t, p.Indices)
	assert.Equal(t, asset.UnsignedShort, p.Indices.ComponentType)
	assert.Equal(t, asset.TargetElementArrayBuffer, p.Indices.BufferView.Target)
}

func TestLoadMaterial(t *testing.T) {
	res := loadScene(t)
	m := res.Scene.Node(res.Scene.FindByName("child")).Mesh.Primitives[0].Material

	assert.Equal(t, "red", m.Name)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, m.BaseColorFactor)
	assert.Equal(t, asset.AlphaMask, m.AlphaMode)
	assert.InDelta(t, 0.3, m.AlphaCutoff, 1e-6)
	assert.True(t, m.DoubleSided)

	tex := m.BaseColorTexture
	require.NotNil(t, tex)
	require.NotNil(t, tex.Image.Pixels)
	assert.Equal(t, 2, tex.Image.Pixels.Rect.Dx())
	assert.Equal(t, uint8(255), tex.Image.Pixels.Pix[0])
	assert.Equal(t, asset.FilterNearest, tex.Sampler.MagFilter)
	assert.Equal(t, asset.FilterLinearMipmapLinear, tex.Sampler.MinFilter)
	assert.Equal(t, asset.WrapClampToEdge, tex.Sampler.WrapS)
	assert.Equal(t, asset.WrapRepeat, tex.Sampler.WrapT)
}

func TestLoadCameras(t *testing.T) {
	res := loadScene(t)
	s := res.Scene

	require.Len(t, res.Cameras, 2)
	assert.Equal(t, s.FindByName("main"), res.Camera)

	persp, ok := s.Node(res.Camera).Camera.(*scene.Perspective)
	require.True(t, ok)
	assert.InDelta(t, 0.8, persp.YFov, 1e-6)
	assert.InDelta(t, 1.5, persp.AspectRatio, 1e-6)
	assert.InDelta(t, 100, persp.ZFar, 1e-6)

	require.NoError(t, res.SelectCamera("top"))
	ortho, ok := s.Node(res.Camera).Camera.(*scene.Orthographic)
	require.True(t, ok)
	assert.InDelta(t, -2, ortho.Left, 1e-6)
	assert.InDelta(t, 1, ortho.Top, 1e-6)

	assert.Error(t, res.SelectCamera("missing"))
	assert.Equal(t, s.FindByName("top"), res.Camera)
	assert.NoError(t, res.SelectCamera(""))
}

func TestLoadPointLight(t *testing.T) {
	res := loadScene(t)
	require.Len(t, res.Lights, 1)

	n := res.Scene.Node(res.Lights[0])
	assert.Equal(t, "lamp", n.Name)
	l := n.Light
	require.NotNil(t, l)
	assert.Equal(t, scene.PointLight, l.Kind)
	assert.Equal(t, "bulb", l.Name)
	assert.InDelta(t, 10, l.Intensity, 1e-6)
	assert.InDelta(t, 20, l.Range, 1e-6)
	assert.True(t, l.Color.ApproxEqual(math.Vec3{X: 1, Y: 0.5, Z: 0.25}, 1e-6))
}

func TestLoadSpotLight(t *testing.T) {
	spot := `{"type": "spot", "spot": {"innerConeAngle": 0.2, "outerConeAngle": 0.6}}`
	res, err := Load(writeScene(t, spot))
	require.NoError(t, err)

	l := res.Scene.Node(res.Lights[0]).Light
	assert.Equal(t, scene.SpotLight, l.Kind)
	assert.InDelta(t, 0.2, l.InnerConeAngle, 1e-6)
	assert.InDelta(t, 0.6, l.OuterConeAngle, 1e-6)
	assert.InDelta(t, 1, l.Intensity, 1e-6)
}

func TestLoadDirectionalLightUnsupported(t *testing.T) {
	_, err := Load(writeScene(t, `{"type": "directional"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedLight)
}

func TestLoadMatrixNode(t *testing.T) {
	res := loadScene(t)
	n := res.Scene.Node(res.Scene.FindByName("scaled"))

	assert.True(t, n.Pose.Translation.ApproxEqual(math.Vec3{X: 2, Y: 3, Z: 4}, 1e-5))
	assert.True(t, n.Pose.Scale.ApproxEqual(math.Vec3{X: 2, Y: 2, Z: 2}, 1e-5))
	assert.True(t, n.Pose.Rotation.ApproxEqual(math.RotorIdentity(), 1e-5))
}

func TestDecomposeZeroScaleAxis(t *testing.T) {
	const halfPi = float32(1.5707963267948966)
	quarterZ := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DZ(halfPi))

	tests := []struct {
		name  string
		scale mgl32.Vec3
		xAxis math.Vec3
		yAxis math.Vec3
	}{
		{"zero x", mgl32.Vec3{0, 2, 3}, math.Vec3{Y: 1}, math.Vec3{X: -1}},
		{"zero z", mgl32.Vec3{2, 3, 0}, math.Vec3{Y: 1}, math.Vec3{X: -1}},
		{"two zero axes", mgl32.Vec3{0, 0, 4}, math.Vec3{X: 1}, math.Vec3{Y: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quarterZ.Mul4(mgl32.Scale3D(tt.scale.X(), tt.scale.Y(), tt.scale.Z()))
			pose := decompose(m)

			assert.True(t, pose.Translation.ApproxEqual(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-5), "translation %v", pose.Translation)
			assert.True(t, pose.Scale.ApproxEqual(math.Vec3{X: tt.scale.X(), Y: tt.scale.Y(), Z: tt.scale.Z()}, 1e-5), "scale %v", pose.Scale)
			assert.InDelta(t, 1, pose.Rotation.Magnitude(), 1e-5)
			x := math.Vec3{X: 1}.Rotate(pose.Rotation)
			y := math.Vec3{Y: 1}.Rotate(pose.Rotation)
			assert.True(t, x.ApproxEqual(tt.xAxis, 1e-5), "x axis %v", x)
			assert.True(t, y.ApproxEqual(tt.yAxis, 1e-5), "y axis %v", y)
		})
	}
}

func TestLoadDefaultCamera(t *testing.T) {
	doc := `{
  "asset": {"version": "2.0"},
  "nodes": [{"name": "empty"}]
}`
	path := filepath.Join(t.TempDir(), "empty.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	res, err := Load(path)
	require.NoError(t, err)
	require.Len(t, res.Cameras, 1)
	n := res.Scene.Node(res.Camera)
	assert.Equal(t, DefaultCameraName, n.Name)
	assert.NotNil(t, n.Camera)
	assert.Len(t, res.Scene.Roots(), 2)
	assert.Empty(t, res.Lights)
}

func TestLoadExternalImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base color.png"), pngBytes(t), 0o644))

	b := newBuilder(nil, dir)
	data, err := b.imageBytes(&gltf.Image{URI: "base%20color.png"})
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), data)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)

	doc := `{
  "asset": {"version": "2.0"},
  "nodes": [{"name": "bad", "mesh": 3}]
}`
	path := filepath.Join(t.TempDir(), "bad.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
