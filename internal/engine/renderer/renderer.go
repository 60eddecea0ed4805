// Package renderer draws a scene in two passes: depth from the primary
// light into a shadow map, then forward shading from the viewer camera.
// GPU objects are created once per asset and cached for the renderer's
// lifetime.
package renderer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/rotorview/internal/engine/gpu"
	"github.com/Faultbox/rotorview/internal/engine/renderer/shaders"
	"github.com/Faultbox/rotorview/internal/engine/scene"
	"github.com/Faultbox/rotorview/internal/logger"
)

var (
	// ErrNoLight is returned when a frame has no usable light node.
	ErrNoLight = errors.New("no light to cast shadows from")
	// ErrNoCamera is returned when the camera node carries no camera.
	ErrNoCamera = errors.New("node has no camera")
)

// Config holds renderer configuration.
type Config struct {
	Width            int32
	Height           int32
	ShadowResolution int32
	LightCamera      LightCameraPolicy
	ClearColor       [4]float32
}

// DefaultConfig returns a 1280x720 renderer with the stock light camera.
func DefaultConfig() Config {
	return Config{
		Width:            1280,
		Height:           720,
		ShadowResolution: DefaultShadowResolution,
		LightCamera:      DefaultLightCameraPolicy(),
		ClearColor:       [4]float32{0.1, 0.1, 0.15, 1.0},
	}
}

// Renderer owns both passes and the GPU resource cache.
type Renderer struct {
	config Config
	dev    gpu.Device
	log    *zap.Logger

	res    *resources
	shadow *ShadowPass
	main   *MainPass

	mainProgram   gpu.Handle
	shadowProgram gpu.Handle
}

// New compiles both programs and creates the shadow target.
// IMPORTANT: dev must wrap a current GPU context.
func New(dev gpu.Device, cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		dev:    dev,
		log:    logger.Named("renderer"),
	}
	r.log.Info("creating renderer",
		zap.String("device", dev.Info()),
		zap.Int32("width", cfg.Width),
		zap.Int32("height", cfg.Height),
	)

	var err error
	r.mainProgram, err = dev.CreateProgram(shaders.MainVertexShader,
		shaders.WithDefines(shaders.MainFragmentShader, shaderDefines()))
	if err != nil {
		return nil, fmt.Errorf("failed to create main program: %w", err)
	}
	r.shadowProgram, err = dev.CreateProgram(shaders.ShadowVertexShader, shaders.ShadowFragmentShader)
	if err != nil {
		dev.Delete(r.mainProgram)
		return nil, fmt.Errorf("failed to create shadow program: %w", err)
	}

	r.res = newResources(dev, r.log)
	r.shadow, err = newShadowPass(dev, r.res, r.shadowProgram, cfg.ShadowResolution, cfg.LightCamera, r.log)
	if err != nil {
		r.res.release()
		dev.Delete(r.shadowProgram)
		dev.Delete(r.mainProgram)
		return nil, err
	}
	r.main = newMainPass(dev, r.res, r.mainProgram, cfg.Width, cfg.Height, cfg.ClearColor)

	return r, nil
}

// Prepare uploads every buffer, texture and vertex array the scene uses.
// Anything not prepared is uploaded lazily on first draw.
func (r *Renderer) Prepare(s *scene.Scene) error {
	if err := r.res.prepare(s); err != nil {
		return fmt.Errorf("preparing scene: %w", err)
	}
	return nil
}

// RenderFrame draws the shadow pass from lights[0] then the main pass from
// camera. Only the first light casts shadows and shades.
func (r *Renderer) RenderFrame(s *scene.Scene, camera scene.NodeID, lights []scene.NodeID) error {
	if len(lights) == 0 {
		return ErrNoLight
	}
	if err := r.shadow.Render(s, lights[0]); err != nil {
		return err
	}
	return r.main.Render(s, camera, lights[0], r.shadow)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int32) {
	r.config.Width = width
	r.config.Height = height
	r.main.Resize(width, height)
	r.log.Debug("renderer resized",
		zap.Int32("width", width),
		zap.Int32("height", height),
	)
}

// Shadow returns the shadow pass.
func (r *Renderer) Shadow() *ShadowPass { return r.shadow }

// Main returns the shading pass.
func (r *Renderer) Main() *MainPass { return r.main }

// Cache returns the resource cache.
func (r *Renderer) Cache() *Cache { return r.res.cache }

// Close releases every GPU object the renderer created.
func (r *Renderer) Close() {
	r.log.Info("closing renderer", zap.Int("cached", r.res.cache.Len()))
	r.res.release()
	r.shadow.release()
	r.dev.Delete(r.shadowProgram)
	r.dev.Delete(r.mainProgram)
}
