// Package input defines the virtual keyboard/mouse/gamepad collaborator
// invoked by keyboard, mouse, gamepad, and screen_share's "input" action.
// Concrete OS-level key/pointer injection is out of scope for the core
// (SPEC_FULL.md §1); this package defines the contract and an in-memory
// adapter suitable for headless tests.
package input

import "sync"

// Adapter is the virtual input device the dispatcher's inline handlers
// call into. All methods must be safe for concurrent use and must never
// block, since keyboard/mouse/gamepad handlers run inline on the
// dispatch path.
type Adapter interface {
	KeyEvent(action, key string)
	PointerEvent(action string, x, y int)
	ScrollEvent(deltaX, deltaY int)
	GamepadEvent(action string, payload map[string]any)
}

// Recorder is an in-memory Adapter that records every event instead of
// injecting it, used by hosts with no OS-level input driver wired in, and
// by tests asserting dispatch behavior without touching real input.
type Recorder struct {
	mu       sync.Mutex
	Keys     []KeyEvent
	Pointers []PointerEvent
	Scrolls  []ScrollEvent
	Gamepads []GamepadEvent
}

type KeyEvent struct {
	Action string
	Key    string
}

type PointerEvent struct {
	Action string
	X, Y   int
}

type ScrollEvent struct {
	DeltaX, DeltaY int
}

type GamepadEvent struct {
	Action  string
	Payload map[string]any
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) KeyEvent(action, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Keys = append(r.Keys, KeyEvent{Action: action, Key: key})
}

func (r *Recorder) PointerEvent(action string, x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pointers = append(r.Pointers, PointerEvent{Action: action, X: x, Y: y})
}

func (r *Recorder) ScrollEvent(deltaX, deltaY int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scrolls = append(r.Scrolls, ScrollEvent{DeltaX: deltaX, DeltaY: deltaY})
}

func (r *Recorder) GamepadEvent(action string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Gamepads = append(r.Gamepads, GamepadEvent{Action: action, Payload: payload})
}

// Len reports the total number of events recorded across all kinds, handy
// for tests that just want to confirm something was forwarded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Keys) + len(r.Pointers) + len(r.Scrolls) + len(r.Gamepads)
}
