package streaming

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/camera"
	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/media"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

type recordingSender struct {
	mu     sync.Mutex
	text   [][]byte
	binary [][]byte
}

func (r *recordingSender) SendText(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = append(r.text, data)
	return nil
}
func (r *recordingSender) SendBinary(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binary = append(r.binary, append([]byte(nil), data...))
	return nil
}
func (r *recordingSender) Close() error { return nil }

func (r *recordingSender) binaryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.binary)
}

func (r *recordingSender) binaryAt(i int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.binary[i]
}

func newTestService() *Service {
	return New(capture.NewManager(nil), camera.New(nil), media.NewNullController(), nil)
}

func TestScreenShareStartProducesHeaderedFrame(t *testing.T) {
	svc := newTestService()
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)
	sess.SetState(session.Running)

	env, _ := dispatch.Decode([]byte(`{"type":"screen_share","action":"start","display_index":0,"fps":10,"quality":50,"resolution":"720p"}`))
	if _, err := svc.HandleScreenShare(context.Background(), sess, env); err != nil {
		t.Fatalf("HandleScreenShare start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sender.binaryCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sender.binaryCount() == 0 {
		t.Fatal("expected at least one screen binary frame")
	}

	frame := sender.binaryAt(0)
	if string(frame[0:4]) != "SCRN" || frame[4] != 0x00 {
		t.Fatalf("frame header = %q/%d, want SCRN/0", frame[0:4], frame[4])
	}
}

func TestScreenShareStopWithoutIndexStopsAllMonitors(t *testing.T) {
	svc := newTestService()
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)
	sess.SetState(session.Running)

	startEnv, _ := dispatch.Decode([]byte(`{"type":"screen_share","action":"start","display_indices":[0,1],"fps":10,"quality":50,"resolution":"native"}`))
	svc.HandleScreenShare(context.Background(), sess, startEnv)

	stopEnv, _ := dispatch.Decode([]byte(`{"type":"screen_share","action":"stop"}`))
	svc.HandleScreenShare(context.Background(), sess, stopEnv)

	if len(sess.ActiveSubIDs(session.StreamScreen)) != 0 {
		t.Fatal("stop without display_index should stop all monitors")
	}
}

func TestSetResolutionRejectsUnknownPreset(t *testing.T) {
	svc := newTestService()
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)
	sess.SetState(session.Running)

	startEnv, _ := dispatch.Decode([]byte(`{"type":"screen_share","action":"start","display_index":0,"fps":10,"quality":50,"resolution":"720p"}`))
	if _, err := svc.HandleScreenShare(context.Background(), sess, startEnv); err != nil {
		t.Fatalf("HandleScreenShare start: %v", err)
	}

	badEnv, _ := dispatch.Decode([]byte(`{"type":"screen_share","action":"set_resolution","resolution":"4k"}`))
	if _, err := svc.HandleScreenShare(context.Background(), sess, badEnv); err != nil {
		t.Fatalf("set_resolution with unknown preset should not error, got: %v", err)
	}

	st := svc.stateFor(sess)
	st.mu.Lock()
	_, stillStreaming := st.screen[0]
	st.mu.Unlock()
	if !stillStreaming {
		t.Fatal("rejecting an unknown preset must not tear down the active reader")
	}
}

func TestListDisplaysReturnsZeroBasedIndex(t *testing.T) {
	svc := newTestService()
	resp, err := svc.listDisplays()
	if err != nil {
		t.Fatalf("listDisplays: %v", err)
	}
	payload := resp.(map[string]any)
	displays := payload["displays"].([]displayInfo)
	if len(displays) != 1 || displays[0].Index != 0 {
		t.Fatalf("displays = %+v, want one display at index 0", displays)
	}
}

func TestCameraStartReturnsInfoAndProducesFrames(t *testing.T) {
	svc := newTestService()
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)
	sess.SetState(session.Running)

	env, _ := dispatch.Decode([]byte(`{"type":"camera","action":"start","device_index":0,"quality":60}`))
	resp, err := svc.HandleCamera(context.Background(), sess, env)
	if err != nil {
		t.Fatalf("HandleCamera start: %v", err)
	}
	if resp.(map[string]any)["type"] != "camera_info" {
		t.Fatalf("resp = %+v, want camera_info", resp)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sender.binaryCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sender.binaryCount() == 0 {
		t.Fatal("expected at least one camera binary frame")
	}
	if string(sender.binaryAt(0)[0:4]) != "CAMF" {
		t.Fatalf("frame header = %q, want CAMF", sender.binaryAt(0)[0:4])
	}

	svc.stopCamera(sess)
}

func TestMediaControlGetInfoReturnsState(t *testing.T) {
	svc := newTestService()
	sess := session.New(context.Background(), &recordingSender{})

	env, _ := dispatch.Decode([]byte(`{"type":"media_control","action":"get_info"}`))
	resp, err := svc.HandleMediaControl(context.Background(), sess, env)
	if err != nil {
		t.Fatalf("HandleMediaControl get_info: %v", err)
	}
	if resp.(map[string]any)["type"] != "media_state" {
		t.Fatalf("resp = %+v, want media_state", resp)
	}
}
