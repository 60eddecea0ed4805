package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/rotorview/internal/engine/interaction"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		event sdl.Event
		want  Event
		ok    bool
	}{
		{"quit", &sdl.QuitEvent{Type: sdl.QUIT}, Event{Type: EventQuit}, true},
		{"resize", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_SIZE_CHANGED, Data1: 800, Data2: 600},
			Event{Type: EventWindowResize, Width: 800, Height: 600}, true},
		{"focus lost", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_FOCUS_LOST},
			Event{Type: EventFocusLost}, true},
		{"window moved", &sdl.WindowEvent{Type: sdl.WINDOWEVENT, Event: sdl.WINDOWEVENT_MOVED}, Event{}, false},
		{"key down", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_W}},
			Event{Type: EventKeyDown, Key: sdl.SCANCODE_W}, true},
		{"key up", &sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_A}},
			Event{Type: EventKeyUp, Key: sdl.SCANCODE_A}, true},
		{"key repeat", &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Scancode: sdl.SCANCODE_W}},
			Event{}, false},
		{"motion", &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, X: 10, Y: 20, XRel: -3, YRel: 4},
			Event{Type: EventMouseMove, MouseX: 10, MouseY: 20, DX: -3, DY: 4}, true},
		{"button", &sdl.MouseButtonEvent{Type: sdl.MOUSEBUTTONDOWN, X: 1, Y: 2, Button: sdl.BUTTON_LEFT},
			Event{Type: EventMouseDown, MouseX: 1, MouseY: 2, Button: sdl.BUTTON_LEFT}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Translate(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMovementKey(t *testing.T) {
	tests := []struct {
		sc   sdl.Scancode
		want interaction.Key
	}{
		{sdl.SCANCODE_W, interaction.KeyForward},
		{sdl.SCANCODE_UP, interaction.KeyForward},
		{sdl.SCANCODE_S, interaction.KeyBack},
		{sdl.SCANCODE_A, interaction.KeyLeft},
		{sdl.SCANCODE_RIGHT, interaction.KeyRight},
	}
	for _, tt := range tests {
		got, ok := MovementKey(tt.sc)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}

	_, ok := MovementKey(sdl.SCANCODE_F12)
	assert.False(t, ok)
}
