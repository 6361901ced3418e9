package streaming

import (
	"context"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

// frameHeaderCamera is the 4-byte ASCII tag preceding JPEG bytes on every
// camera binary frame.
var frameHeaderCamera = []byte("CAMF")

type cameraReader struct {
	deviceIndex int
	fps         int
	release     func()
}

// HandleCamera implements the camera message type: list_cameras, start,
// stop, set_camera. It blocks on device I/O, so the dispatcher offloads
// it to the worker pool.
func (s *Service) HandleCamera(ctx context.Context, sess *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "list_cameras":
		devices, err := s.Camera.ListDevices()
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "camera_list", "cameras": devices}, nil

	case "start":
		return s.startCamera(sess, env)

	case "stop":
		s.stopCamera(sess)
		return nil, nil

	case "set_camera":
		return s.startCamera(sess, env)

	default:
		return nil, nil
	}
}

func (s *Service) startCamera(sess *session.ClientSession, env dispatch.Envelope) (any, error) {
	deviceIndex := env.GetInt("device_index", env.GetInt("camera_index", 0))
	quality := env.GetInt("quality", 70)

	st := s.stateFor(sess)
	st.mu.Lock()
	if st.cam != nil {
		st.cam.release()
		sess.StopStreamsOfKind(session.StreamCamera)
	}
	st.mu.Unlock()

	if err := s.Camera.Start(deviceIndex, quality); err != nil {
		return nil, err
	}

	fps := 15
	if devices, err := s.Camera.ListDevices(); err == nil {
		for _, d := range devices {
			if d.Index == deviceIndex && d.FPS > 0 {
				fps = d.FPS
			}
		}
	}
	reader := &cameraReader{deviceIndex: deviceIndex, fps: fps, release: s.Camera.Stop}
	st.mu.Lock()
	st.cam = reader
	st.mu.Unlock()

	streamCtx := sess.StartStream(session.StreamCamera, 0)
	sess.Go(func() { s.runCameraPush(streamCtx, sess, reader) })

	return map[string]any{"type": "camera_info", "device_index": deviceIndex, "fps": reader.fps}, nil
}

func (s *Service) stopCamera(sess *session.ClientSession) {
	st := s.stateFor(sess)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cam == nil {
		return
	}
	st.cam.release()
	st.cam = nil
	sess.StopStreamsOfKind(session.StreamCamera)
}

func (s *Service) runCameraPush(ctx context.Context, sess *session.ClientSession, r *cameraReader) {
	slot := s.Camera.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame := slot.Snapshot()
		if frame != nil {
			msg := make([]byte, 4+len(frame))
			copy(msg[0:4], frameHeaderCamera)
			copy(msg[4:], frame)
			if err := sess.Sender.SendBinary(msg); err != nil {
				log.Warn("camera push send failed", "device", sess.DeviceID, "error", err)
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
