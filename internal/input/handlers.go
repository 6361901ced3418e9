package input

import (
	"context"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

// validKeyboardActions and validMouseActions enforce the allowed action
// vocabulary per SPEC_FULL.md §4.E's input validation rule.
var (
	validKeyboardActions = map[string]bool{"type": true, "press": true, "release": true, "hotkey": true}
	validMouseActions    = map[string]bool{"move": true, "move_relative": true, "click": true, "press": true, "release": true, "scroll": true}
	validGamepadActions  = map[string]bool{"button": true, "trigger": true, "joystick": true, "dpad": true}
)

// Register binds the keyboard/mouse/gamepad message types to adapter,
// all inline (non-blocking) handlers per the dispatcher's policy.
func Register(router *dispatch.Router, adapter Adapter) {
	router.Register("keyboard", false, func(ctx context.Context, s *session.ClientSession, env dispatch.Envelope) (any, error) {
		if !validKeyboardActions[env.Action] {
			return nil, nil
		}
		if env.Action == "hotkey" {
			adapter.KeyEvent(env.Action, env.GetString("keys", ""))
		} else {
			adapter.KeyEvent(env.Action, env.GetString("key", env.GetString("text", "")))
		}
		return nil, nil
	})

	router.Register("mouse", false, func(ctx context.Context, s *session.ClientSession, env dispatch.Envelope) (any, error) {
		if !validMouseActions[env.Action] {
			return nil, nil
		}
		if env.Action == "scroll" {
			adapter.ScrollEvent(env.GetInt("delta_x", 0), env.GetInt("delta_y", 0))
			return nil, nil
		}
		adapter.PointerEvent(env.Action, env.GetInt("x", 0), env.GetInt("y", 0))
		return nil, nil
	})

	router.Register("gamepad", false, func(ctx context.Context, s *session.ClientSession, env dispatch.Envelope) (any, error) {
		if !validGamepadActions[env.Action] {
			return nil, nil
		}
		adapter.GamepadEvent(env.Action, env.Payload)
		return nil, nil
	})
}
