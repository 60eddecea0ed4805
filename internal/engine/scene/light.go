package scene

import (
	gomath "math"

	"github.com/Faultbox/rotorview/pkg/math"
)

// LightKind selects the light model.
type LightKind int

const (
	PointLight LightKind = iota
	SpotLight
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "point"
	case SpotLight:
		return "spot"
	default:
		return "unknown"
	}
}

// Light is a punctual light positioned by its node.
type Light struct {
	Name      string
	Kind      LightKind
	Color     math.Vec3 // linear RGB, 0-1
	Intensity float32
	Range     float32 // zero means unbounded

	// Spot only.
	InnerConeAngle float32
	OuterConeAngle float32
}

// NewPointLight creates a point light.
func NewPointLight(color math.Vec3, intensity float32) *Light {
	return &Light{Kind: PointLight, Color: color, Intensity: intensity}
}

// NewSpotLight creates a spot light with the default cone angles.
func NewSpotLight(color math.Vec3, intensity float32) *Light {
	return &Light{
		Kind:           SpotLight,
		Color:          color,
		Intensity:      intensity,
		OuterConeAngle: gomath.Pi / 4,
	}
}
