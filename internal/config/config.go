// Package config handles viewer configuration loading and management.
package config

// Config holds all viewer settings.
type Config struct {
	Graphics    GraphicsConfig   `yaml:"graphics"`
	Shadow      ShadowConfig     `yaml:"shadow"`
	Scene       SceneConfig      `yaml:"scene"`
	Input       InputConfig      `yaml:"input"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// ShadowConfig holds shadow map settings.
type ShadowConfig struct {
	Resolution  int32             `yaml:"resolution"`
	LightCamera LightCameraConfig `yaml:"light_camera"`
}

// LightCameraConfig places the synthetic camera used for the depth pass.
// The camera sits at the primary light's world position plus Offset and is
// oriented by Bias, a quaternion in (x, y, z, w) order.
type LightCameraConfig struct {
	Offset      [3]float32 `yaml:"offset"`
	Bias        [4]float32 `yaml:"bias"`
	YFov        float32    `yaml:"yfov"`
	AspectRatio float32    `yaml:"aspect_ratio"`
	ZNear       float32    `yaml:"znear"`
	ZFar        float32    `yaml:"zfar"`
}

// SceneConfig selects what to load.
type SceneConfig struct {
	Path   string `yaml:"path"`
	Camera string `yaml:"camera"` // node name; empty picks the first camera node
}

// InputConfig tunes the first-person controller.
type InputConfig struct {
	MouseSensitivity float32 `yaml:"mouse_sensitivity"`
	MaxSpeed         float32 `yaml:"max_speed"`
	Friction         float32 `yaml:"friction"`
	Acceleration     float32 `yaml:"acceleration"`
}

// ScreenshotConfig holds capture output settings.
type ScreenshotConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	// Subsystems overrides Level per named logger, e.g. renderer: debug.
	Subsystems map[string]string `yaml:"subsystems,omitempty"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Shadow: ShadowConfig{
			Resolution: 512,
			LightCamera: LightCameraConfig{
				Bias:        [4]float32{0.34672799706459045, 0.26099100708961487, -0.10108300298452377, 0.895235002040863},
				YFov:        0.8074908757770757,
				AspectRatio: 16.0 / 9.0,
				ZNear:       0.1,
				ZFar:        100,
			},
		},
		Scene: SceneConfig{
			Path: "scene/scene.gltf",
		},
		Input: InputConfig{
			MouseSensitivity: 0.003,
			MaxSpeed:         3,
			Friction:         0.2,
			Acceleration:     20,
		},
		Screenshots: ScreenshotConfig{
			Dir:    "screenshots",
			Prefix: "frame",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
