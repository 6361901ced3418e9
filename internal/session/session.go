// Package session implements the per-connection authentication/approval
// state machine and the registry of running sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var log = logging.L("session")

// State is a position in the session state machine.
type State int

const (
	AwaitingAuth State = iota
	Approving
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingAuth:
		return "awaiting_auth"
	case Approving:
		return "approving"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const (
	AuthTimeout     = 30 * time.Second
	ApprovalTimeout = 60 * time.Second
)

// Sender abstracts the transport write-half a session drives messages
// through, so session logic can be tested without a real socket.
type Sender interface {
	SendText(data []byte) error
	SendBinary(data []byte) error
	Close() error
}

// StreamKind identifies the category of a running stream task.
type StreamKind int

const (
	StreamScreen StreamKind = iota
	StreamCamera
	StreamMediaState
)

// streamKey identifies one running stream task within a session.
type streamKey struct {
	kind  StreamKind
	subID int
}

// ClientSession is the unit of per-connection state.
type ClientSession struct {
	DeviceID   string
	DeviceName string
	Sender     Sender

	mu    sync.Mutex
	state State

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	streams map[streamKey]context.CancelFunc

	rateDropped int64
}

// New creates a session in AwaitingAuth state, bound to parent for
// cancellation propagation on server shutdown.
func New(parent context.Context, sender Sender) *ClientSession {
	ctx, cancel := context.WithCancel(parent)
	return &ClientSession{
		Sender:  sender,
		state:   AwaitingAuth,
		ctx:     ctx,
		cancel:  cancel,
		streams: make(map[streamKey]context.CancelFunc),
	}
}

// Context returns the session's lifetime context; it is cancelled when the
// session terminates.
func (s *ClientSession) Context() context.Context {
	return s.ctx
}

// State returns the current state.
func (s *ClientSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to a new state.
func (s *ClientSession) SetState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// IsApproved reports whether the session has completed authentication and
// approval and is eligible for dispatch (Running state).
func (s *ClientSession) IsApproved() bool {
	return s.State() == Running
}

// StartStream registers a new owned stream task under key (kind, subID) and
// returns a context that is cancelled when the stream should stop — either
// because the caller explicitly stops it (StopStream) or because the whole
// session terminates. Starting a stream that is already running cancels and
// replaces the old one first (idempotent refresh, per spec §8).
func (s *ClientSession) StartStream(kind StreamKind, subID int) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey{kind, subID}
	if cancel, ok := s.streams[key]; ok {
		cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.streams[key] = cancel
	return ctx
}

// StopStream cancels the stream task at (kind, subID), if any. Calling it
// twice is a no-op.
func (s *ClientSession) StopStream(kind StreamKind, subID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey{kind, subID}
	if cancel, ok := s.streams[key]; ok {
		cancel()
		delete(s.streams, key)
	}
}

// StopStreamsOfKind cancels every stream of the given kind owned by this
// session (used for screen_share.stop without a display_index).
func (s *ClientSession) StopStreamsOfKind(kind StreamKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cancel := range s.streams {
		if key.kind == kind {
			cancel()
			delete(s.streams, key)
		}
	}
}

// ActiveSubIDs returns the sub-IDs of currently running streams of kind.
func (s *ClientSession) ActiveSubIDs(kind StreamKind) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int
	for key := range s.streams {
		if key.kind == kind {
			ids = append(ids, key.subID)
		}
	}
	return ids
}

// Go runs fn in a goroutine tracked by the session's WaitGroup, so
// Terminate can wait for it to exit.
func (s *ClientSession) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Terminate cancels every owned stream, transitions to Terminated, waits
// for tracked goroutines to exit, and closes the transport. Safe to call
// more than once.
func (s *ClientSession) Terminate() {
	s.mu.Lock()
	if s.state == Terminated {
		s.mu.Unlock()
		return
	}
	s.state = Terminated
	for key, cancel := range s.streams {
		cancel()
		delete(s.streams, key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	if err := s.Sender.Close(); err != nil {
		log.Debug("session transport close error", "device_id", s.DeviceID, "error", err)
	}
}
