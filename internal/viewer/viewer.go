// Package viewer implements the main loop: input, controller, transforms,
// rendering and presentation.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/config"
	"github.com/Faultbox/rotorview/internal/engine/debug"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/engine/gpu/glcore"
	"github.com/Faultbox/rotorview/internal/engine/input"
	"github.com/Faultbox/rotorview/internal/engine/interaction"
	"github.com/Faultbox/rotorview/internal/engine/loader"
	"github.com/Faultbox/rotorview/internal/engine/renderer"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/internal/engine/window"
	"github.com/Faultbox/rotorview/internal/logger"
	"github.com/Faultbox/rotorview/pkg/math"
)

// Title is the window title.
const Title = "RotorView"

// maxFrameTime caps dt so a stall does not launch the player across the scene.
const maxFrameTime = 0.1

// surface is the presentation side of a window.
type surface interface {
	SwapBuffers()
	GetSize() (int, int)
	SetMouseCaptured(captured bool)
	Close()
}

// Viewer is the main viewer instance.
type Viewer struct {
	config  *config.Config
	log     *zap.Logger
	running bool

	surface     surface
	dev         gpu.Device
	renderer    *renderer.Renderer
	input       *input.Input
	scene       *loader.Result
	player      *interaction.Player
	screenshots *debug.ScreenshotCapture

	width, height  int32
	capturePending bool
}

// New loads the configured scene, opens the window and prepares the GPU.
func New(cfg *config.Config) (*Viewer, error) {
	log := logger.Named("viewer")
	log.Info("initializing viewer",
		zap.String("scene", cfg.Scene.Path),
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
	)

	res, err := loader.Load(cfg.Scene.Path)
	if err != nil {
		return nil, err
	}
	if err := res.SelectCamera(cfg.Scene.Camera); err != nil {
		return nil, err
	}

	// Create window (this also creates the OpenGL context)
	win, err := window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	dev, err := glcore.New()
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("failed to create GPU device: %w", err)
	}

	v, err := newViewer(cfg, win, dev, res)
	if err != nil {
		win.Close()
		return nil, err
	}
	v.input = input.New()

	log.Info("viewer initialized successfully")
	return v, nil
}

func newViewer(cfg *config.Config, surf surface, dev gpu.Device, res *loader.Result) (*Viewer, error) {
	if len(res.Lights) == 0 {
		return nil, fmt.Errorf("scene %s: %w", cfg.Scene.Path, renderer.ErrNoLight)
	}
	camera := res.Scene.Node(res.Camera)
	if camera == nil || camera.Camera == nil {
		return nil, renderer.ErrNoCamera
	}

	v := &Viewer{
		config:      cfg,
		log:         logger.Named("viewer"),
		surface:     surf,
		dev:         dev,
		scene:       res,
		screenshots: debug.NewScreenshotCapture(cfg.Screenshots.Dir, cfg.Screenshots.Prefix),
	}

	w, h := surf.GetSize()
	v.width, v.height = int32(w), int32(h)

	var err error
	v.renderer, err = renderer.New(dev, RendererConfig(cfg, v.width, v.height))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := v.renderer.Prepare(res.Scene); err != nil {
		v.renderer.Close()
		return nil, err
	}

	v.player = interaction.NewPlayer(camera, PlayerSettings(cfg.Input))
	v.setFocus(true)
	v.updateAspect()

	return v, nil
}

// RendererConfig converts viewer settings for the renderer.
func RendererConfig(cfg *config.Config, width, height int32) renderer.Config {
	rc := renderer.DefaultConfig()
	rc.Width, rc.Height = width, height
	rc.ShadowResolution = cfg.Shadow.Resolution

	lc := cfg.Shadow.LightCamera
	rc.LightCamera = renderer.LightCameraPolicy{
		Offset: math.Vec3From(lc.Offset),
		Bias:   math.RotorFromQuaternion(lc.Bias).Normalize(),
		Lens: scene.Perspective{
			AspectRatio: lc.AspectRatio,
			YFov:        lc.YFov,
			ZNear:       lc.ZNear,
			ZFar:        lc.ZFar,
		},
	}
	return rc
}

// PlayerSettings converts the input section for the controller.
func PlayerSettings(in config.InputConfig) interaction.Settings {
	s := interaction.DefaultSettings()
	s.MouseSensitivity = in.MouseSensitivity
	s.MaxSpeed = in.MaxSpeed
	s.Friction = in.Friction
	s.Acceleration = in.Acceleration
	return s
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting main loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		for _, event := range v.input.Events() {
			v.handleEvent(event)
		}
		if !v.running {
			break
		}

		// 2. Update, render and present
		if err := v.tick(float32(min(dt, maxFrameTime))); err != nil {
			return fmt.Errorf("frame error: %w", err)
		}

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.Float64("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// tick runs one frame. The controller writes pending deltas, the scene folds
// them, and the renderer draws and clears them.
func (v *Viewer) tick(dt float32) error {
	v.player.Step(dt)
	v.scene.Scene.UpdateTransforms()

	if err := v.renderer.RenderFrame(v.scene.Scene, v.scene.Camera, v.scene.Lights); err != nil {
		return err
	}

	if v.capturePending {
		v.capturePending = false
		name, err := v.screenshots.Capture(v.dev, v.width, v.height)
		if err != nil {
			v.log.Warn("screenshot failed", zap.Error(err))
		} else {
			v.log.Info("screenshot saved", zap.String("file", name))
		}
	}

	v.surface.SwapBuffers()
	return nil
}

func (v *Viewer) handleEvent(e input.Event) {
	switch e.Type {
	case input.EventQuit:
		v.running = false
	case input.EventWindowResize:
		v.resize(int32(e.Width), int32(e.Height))
	case input.EventFocusLost:
		v.setFocus(false)
	case input.EventFocusGained, input.EventMouseDown:
		if !v.player.Enabled() {
			v.setFocus(true)
		}
	case input.EventKeyDown:
		switch e.Key {
		case sdl.SCANCODE_ESCAPE:
			v.running = false
		case sdl.SCANCODE_F12:
			v.capturePending = true
		default:
			if k, ok := input.MovementKey(e.Key); ok {
				v.player.SetKey(k, true)
			}
		}
	case input.EventKeyUp:
		if k, ok := input.MovementKey(e.Key); ok {
			v.player.SetKey(k, false)
		}
	case input.EventMouseMove:
		v.player.MouseMove(float32(e.DX), float32(e.DY))
	}
}

func (v *Viewer) setFocus(focused bool) {
	if focused {
		v.player.Enable()
	} else {
		v.player.Disable()
	}
	v.surface.SetMouseCaptured(focused)
}

func (v *Viewer) resize(width, height int32) {
	if width <= 0 || height <= 0 {
		return
	}
	v.width, v.height = width, height
	v.renderer.Resize(width, height)
	v.updateAspect()
}

// updateAspect matches a perspective camera to the drawable size.
func (v *Viewer) updateAspect() {
	if p, ok := v.scene.Scene.Node(v.scene.Camera).Camera.(*scene.Perspective); ok && v.height > 0 {
		p.SetAspect(float32(v.width) / float32(v.height))
	}
}

// Close releases GPU resources and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.surface != nil {
		v.surface.Close()
	}
}
