package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/codec"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

const mediaStateInterval = 1500 * time.Millisecond

// HandleMediaControl implements the media_control message type: play,
// pause, stop, next, previous, volume, mute_toggle, get_info. It blocks
// on the external media handler (COM/subprocess), so the dispatcher
// offloads it to the worker pool.
func (s *Service) HandleMediaControl(ctx context.Context, sess *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "play":
		return nil, s.Media.Play(ctx)
	case "pause":
		return nil, s.Media.Pause(ctx)
	case "stop":
		return nil, s.Media.Stop(ctx)
	case "next":
		return nil, s.Media.Next(ctx)
	case "previous":
		return nil, s.Media.Previous(ctx)
	case "volume":
		return nil, s.Media.SetVolume(ctx, env.GetInt("level", 50))
	case "mute_toggle":
		return nil, s.Media.ToggleMute(ctx)
	case "get_info":
		state, err := s.Media.GetInfo(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "media_state", "state": state}, nil
	default:
		return nil, fmt.Errorf("streaming: unknown media_control action %q", env.Action)
	}
}

// StartMediaStatePush begins the per-session media-state push loop,
// collecting state every 1.5s and sending it as an encrypted JSON
// envelope. It runs until the session's root context is cancelled.
func (s *Service) StartMediaStatePush(sess *session.ClientSession) {
	ctx := sess.StartStream(session.StreamMediaState, 0)
	sess.Go(func() { s.runMediaStatePush(ctx, sess) })
}

func (s *Service) runMediaStatePush(ctx context.Context, sess *session.ClientSession) {
	ticker := time.NewTicker(mediaStateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := s.Media.GetInfo(ctx)
		if err != nil {
			log.Warn("media state read failed", "device", sess.DeviceID, "error", err)
			continue
		}

		plain, err := json.Marshal(map[string]any{"type": "media_state", "state": state})
		if err != nil {
			continue
		}
		cipher, err := codec.Encrypt(plain)
		if err != nil {
			continue
		}
		if err := sess.Sender.SendText(cipher); err != nil {
			log.Warn("media state send failed", "device", sess.DeviceID, "error", err)
			return
		}
	}
}
