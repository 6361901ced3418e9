// Package streaming implements the per-session push loops (screen,
// camera, media state) and the screen_share/camera lifecycle messages
// that start, stop, and reconfigure them.
package streaming

import (
	"sync"

	"github.com/AvishakeAdhikary/NexRemote/internal/camera"
	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/input"
	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
	"github.com/AvishakeAdhikary/NexRemote/internal/media"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

var log = logging.L("streaming")

// Service owns the shared capture/camera managers and the per-session
// bookkeeping needed to start, stop, and reconfigure push loops.
type Service struct {
	Capture *capture.Manager
	Camera  *camera.Capture
	Media   media.Controller
	Input   input.Adapter

	mu       sync.Mutex
	sessions map[*session.ClientSession]*sessionState
}

// New creates a streaming Service bound to the given capture/camera
// managers, media controller, and input adapter.
func New(cap *capture.Manager, cam *camera.Capture, mediaCtl media.Controller, inputAdapter input.Adapter) *Service {
	return &Service{
		Capture:  cap,
		Camera:   cam,
		Media:    mediaCtl,
		Input:    inputAdapter,
		sessions: make(map[*session.ClientSession]*sessionState),
	}
}

// sessionState tracks one session's active screen readers (keyed by
// zero-based monitor index), camera reader, and media-state push loop.
type sessionState struct {
	mu     sync.Mutex
	screen map[int]*screenReader
	cam    *cameraReader
}

func (s *Service) stateFor(sess *session.ClientSession) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sess]
	if !ok {
		st = &sessionState{screen: make(map[int]*screenReader)}
		s.sessions[sess] = st
	}
	return st
}

// Forget drops a session's bookkeeping. Called when a session terminates;
// the session's own stream contexts are already cancelled by Terminate,
// so this just releases the Service-side map entry and reader handles.
func (s *Service) Forget(sess *session.ClientSession) {
	s.mu.Lock()
	st, ok := s.sessions[sess]
	delete(s.sessions, sess)
	s.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, r := range st.screen {
		r.release()
	}
	if st.cam != nil {
		st.cam.release()
	}
}
