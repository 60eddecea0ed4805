// Package interaction drives scene nodes from user input.
package interaction

import (
	gomath "math"

	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/pkg/math"
)

// Key is a movement key.
type Key int

const (
	KeyForward Key = iota
	KeyBack
	KeyLeft
	KeyRight
	keyCount
)

var (
	axisX = math.Vec3{X: 1}
	axisY = math.Vec3{Y: 1}
)

// Settings tunes the first-person controller.
type Settings struct {
	MouseSensitivity float32 // radians per pixel
	MaxSpeed         float32 // units per second
	Friction         float32 // velocity fraction lost per idle step
	Acceleration     float32 // units per second squared
	PitchLimit       float32 // max elevation above or below the horizon, radians
}

// DefaultSettings returns the stock controller tuning.
func DefaultSettings() Settings {
	return Settings{
		MouseSensitivity: 0.003,
		MaxSpeed:         3,
		Friction:         0.2,
		Acceleration:     20,
		PitchLimit:       gomath.Pi / 3,
	}
}

// Player is a first-person controller. Mouse motion turns the node and the
// movement keys accelerate it on the horizontal plane. All changes reach the
// node as pending deltas through Rotate and Translate.
type Player struct {
	Settings

	// Orientation, yaw about world Y then pitch about local X.
	Yaw   float32
	Pitch float32

	node     *scene.Node
	velocity math.Vec3
	keys     [keyCount]bool
	enabled  bool
}

// NewPlayer creates a disabled controller for node, taking yaw and pitch from
// its current rotation.
func NewPlayer(node *scene.Node, settings Settings) *Player {
	p := &Player{Settings: settings, node: node}
	p.Yaw, p.Pitch = yawPitch(node.Pose.Rotation)
	return p
}

// Node returns the controlled node.
func (p *Player) Node() *scene.Node { return p.node }

// Velocity returns the current velocity.
func (p *Player) Velocity() math.Vec3 { return p.velocity }

// Enabled reports whether input is being accepted.
func (p *Player) Enabled() bool { return p.enabled }

// Enable starts accepting input.
func (p *Player) Enable() {
	p.enabled = true
}

// Disable stops accepting input and releases every key.
func (p *Player) Disable() {
	p.enabled = false
	p.keys = [keyCount]bool{}
}

// SetKey records a key press or release.
func (p *Player) SetKey(k Key, down bool) {
	if !p.enabled || k < 0 || k >= keyCount {
		return
	}
	p.keys[k] = down
}

// MouseMove turns the node by a relative mouse motion in pixels.
func (p *Player) MouseMove(dx, dy float32) {
	if !p.enabled {
		return
	}
	before := p.orientation()

	p.Yaw -= dx * p.MouseSensitivity
	p.Pitch -= dy * p.MouseSensitivity

	// Clamp pitch
	if p.Pitch < -p.PitchLimit {
		p.Pitch = -p.PitchLimit
	}
	if p.Pitch > p.PitchLimit {
		p.Pitch = p.PitchLimit
	}
	p.Yaw = wrapAngle(p.Yaw)

	p.node.Rotate(p.orientation().Mul(before.Invert()))
}

// Step advances movement by dt seconds.
func (p *Player) Step(dt float32) {
	forward, right := p.directions()

	var accel math.Vec3
	if p.keys[KeyForward] {
		accel = accel.Add(forward)
	}
	if p.keys[KeyBack] {
		accel = accel.Sub(forward)
	}
	if p.keys[KeyRight] {
		accel = accel.Add(right)
	}
	if p.keys[KeyLeft] {
		accel = accel.Sub(right)
	}
	p.velocity = p.velocity.Add(accel.Scale(dt * p.Acceleration))

	if !p.moving() {
		p.velocity = p.velocity.Scale(1 - p.Friction)
	}
	if speed := p.velocity.Length(); speed > p.MaxSpeed {
		p.velocity = p.velocity.Scale(p.MaxSpeed / speed)
	}

	if p.velocity != (math.Vec3{}) {
		p.node.Translate(p.velocity.Scale(dt))
	}
}

func (p *Player) moving() bool {
	for _, down := range p.keys {
		if down {
			return true
		}
	}
	return false
}

// directions returns the forward and right vectors on the XZ plane.
func (p *Player) directions() (forward, right math.Vec3) {
	sin, cos := gomath.Sincos(float64(p.Yaw))
	s, c := float32(sin), float32(cos)
	return math.Vec3{X: -s, Z: -c}, math.Vec3{X: c, Z: -s}
}

func (p *Player) orientation() math.Rotor {
	yaw := math.RotorFromAxisAngle(p.Yaw, axisY)
	pitch := math.RotorFromAxisAngle(p.Pitch, axisX)
	return yaw.Mul(pitch)
}

// yawPitch recovers the view angles from where r points the -Z axis.
func yawPitch(r math.Rotor) (yaw, pitch float32) {
	f := math.Vec3{Z: -1}.Rotate(r)
	y := gomath.Max(-1, gomath.Min(1, float64(f.Y)))
	pitch = float32(gomath.Asin(y))
	yaw = wrapAngle(float32(gomath.Atan2(float64(-f.X), float64(-f.Z))))
	return yaw, pitch
}

// wrapAngle maps a to [0, 2π).
func wrapAngle(a float32) float32 {
	const twoPi = 2 * gomath.Pi
	w := gomath.Mod(float64(a), twoPi)
	if w < 0 {
		w += twoPi
	}
	return float32(w)
}
