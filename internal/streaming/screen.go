package streaming

import (
	"context"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

// frameHeaderScreen is the 4-byte ASCII tag preceding the zero-based
// monitor index and JPEG bytes on every screen binary frame.
var frameHeaderScreen = []byte("SCRN")

type screenReader struct {
	monitorZeroBased int
	slot             *capture.FrameSlot
	setParams        func(capture.Params)
	release          func()
	fps              int
}

// HandleScreenShare implements the screen_share message type: start,
// stop, set_fps, set_quality, set_resolution, set_monitor, list_displays,
// and input (forwarded touch-to-mouse events).
func (s *Service) HandleScreenShare(ctx context.Context, sess *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "start":
		return nil, s.startScreenShare(sess, env)
	case "stop":
		s.stopScreenShare(sess, env)
		return nil, nil
	case "set_fps":
		s.setScreenParam(sess, env, func(p *capture.Params) { p.FPS = env.GetInt("fps", p.FPS) }, true)
		return nil, nil
	case "set_quality":
		s.setScreenParam(sess, env, func(p *capture.Params) { p.Quality = env.GetInt("quality", p.Quality) }, false)
		return nil, nil
	case "set_resolution":
		name := env.GetString("resolution", "")
		if _, err := capture.ResolvePreset(name); err != nil {
			log.Warn("set_resolution rejected unknown preset", "device", sess.DeviceID, "preset", name)
			return nil, nil
		}
		s.setScreenParam(sess, env, func(p *capture.Params) { p.Preset = name }, false)
		return nil, nil
	case "set_monitor":
		return nil, s.setMonitor(sess, env)
	case "list_displays":
		return s.listDisplays()
	case "input":
		s.forwardInput(env)
		return nil, nil
	default:
		return nil, nil
	}
}

func (s *Service) startScreenShare(sess *session.ClientSession, env dispatch.Envelope) error {
	indices := env.GetIntSlice("display_indices")
	if len(indices) == 0 {
		indices = []int{env.GetInt("display_index", 0)}
	}

	params := capture.Params{
		FPS:     env.GetInt("fps", 15),
		Quality: env.GetInt("quality", 70),
		Preset:  env.GetString("resolution", "native"),
	}

	st := s.stateFor(sess)
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, zeroBased := range indices {
		if _, exists := st.screen[zeroBased]; exists {
			continue
		}
		internalIndex := zeroBased + 1
		slot, setParams, release := s.Capture.Subscribe(internalIndex, params)
		reader := &screenReader{
			monitorZeroBased: zeroBased,
			slot:             slot,
			setParams:        setParams,
			release:          release,
			fps:              params.FPS,
		}
		st.screen[zeroBased] = reader
		streamCtx := sess.StartStream(session.StreamScreen, zeroBased)
		sess.Go(func() { s.runScreenPush(streamCtx, sess, reader) })
	}
	return nil
}

func (s *Service) stopScreenShare(sess *session.ClientSession, env dispatch.Envelope) {
	st := s.stateFor(sess)

	if _, ok := env.Payload["display_index"]; !ok {
		sess.StopStreamsOfKind(session.StreamScreen)
		st.mu.Lock()
		for zeroBased, r := range st.screen {
			r.release()
			delete(st.screen, zeroBased)
		}
		st.mu.Unlock()
		return
	}

	zeroBased := env.GetInt("display_index", 0)
	sess.StopStream(session.StreamScreen, zeroBased)

	st.mu.Lock()
	if r, ok := st.screen[zeroBased]; ok {
		r.release()
		delete(st.screen, zeroBased)
	}
	st.mu.Unlock()
}

// setScreenParam applies a setting to every active screen reader on this
// session. restartForFPS restarts the push loop so the new interval takes
// effect immediately, per SPEC_FULL.md §4.F.
func (s *Service) setScreenParam(sess *session.ClientSession, env dispatch.Envelope, apply func(*capture.Params), restartForFPS bool) {
	st := s.stateFor(sess)
	st.mu.Lock()
	defer st.mu.Unlock()

	for zeroBased, r := range st.screen {
		p := capture.Params{FPS: r.fps}
		apply(&p)
		r.setParams(p)
		if restartForFPS {
			r.fps = p.FPS
			streamCtx := sess.StartStream(session.StreamScreen, zeroBased)
			reader := r
			sess.Go(func() { s.runScreenPush(streamCtx, sess, reader) })
		}
	}
}

func (s *Service) setMonitor(sess *session.ClientSession, env dispatch.Envelope) error {
	old := env.GetInt("display_index", -1)
	next := env.GetInt("new_display_index", env.GetInt("display_index", 0))

	st := s.stateFor(sess)
	st.mu.Lock()
	defer st.mu.Unlock()

	if r, ok := st.screen[old]; ok {
		r.release()
		delete(st.screen, old)
		sess.StopStream(session.StreamScreen, old)
	}

	params := capture.Params{FPS: 15, Quality: 70, Preset: "native"}
	slot, setParams, release := s.Capture.Subscribe(next+1, params)
	reader := &screenReader{monitorZeroBased: next, slot: slot, setParams: setParams, release: release, fps: params.FPS}
	st.screen[next] = reader
	streamCtx := sess.StartStream(session.StreamScreen, next)
	sess.Go(func() { s.runScreenPush(streamCtx, sess, reader) })
	return nil
}

type displayInfo struct {
	Index             int    `json:"index"`
	Name              string `json:"name"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	IsPrimary         bool   `json:"is_primary"`
	ActiveDisplays    []int  `json:"active_displays"`
	CurrentFPS        int    `json:"current_fps"`
	CurrentQuality    int    `json:"current_quality"`
	CurrentResolution string `json:"current_resolution"`
}

func (s *Service) listDisplays() (any, error) {
	monitors, err := s.Capture.ListMonitors()
	if err != nil {
		return nil, err
	}
	out := make([]displayInfo, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, displayInfo{
			Index:     m.Index - 1,
			Name:      m.Name,
			Width:     m.Width,
			Height:    m.Height,
			IsPrimary: m.IsPrimary,
		})
	}
	return map[string]any{"type": "display_list", "displays": out}, nil
}

func (s *Service) forwardInput(env dispatch.Envelope) {
	if s.Input == nil {
		return
	}
	action := env.GetString("action_type", env.Action)
	x := env.GetInt("x", 0)
	y := env.GetInt("y", 0)
	s.Input.PointerEvent(action, x, y)
}

// runScreenPush paces itself to the reader's current fps, reading frames
// from the shared FrameSlot; no catch-up is attempted if it falls behind.
func (s *Service) runScreenPush(ctx context.Context, sess *session.ClientSession, r *screenReader) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame := r.slot.Snapshot()
		if frame != nil {
			msg := make([]byte, 5+len(frame))
			copy(msg[0:4], frameHeaderScreen)
			msg[4] = byte(r.monitorZeroBased)
			copy(msg[5:], frame)
			if err := sess.Sender.SendBinary(msg); err != nil {
				log.Warn("screen push send failed", "device", sess.DeviceID, "monitor", r.monitorZeroBased, "error", err)
				return
			}
		}

		interval := time.Second / time.Duration(max(r.fps, 1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
