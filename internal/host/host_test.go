package host

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/camera"
	"github.com/AvishakeAdhikary/NexRemote/internal/codec"
	"github.com/AvishakeAdhikary/NexRemote/internal/config"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/media"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
	"github.com/AvishakeAdhikary/NexRemote/internal/streaming"
)

type recordingSender struct {
	mu   sync.Mutex
	text [][]byte
}

func (r *recordingSender) SendText(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = append(r.text, append([]byte(nil), data...))
	return nil
}
func (r *recordingSender) SendBinary(data []byte) error { return nil }
func (r *recordingSender) Close() error                 { return nil }

// last decodes the most recently sent frame as plaintext JSON. The
// handshake exchange (auth_success, rejection) is never encrypted, so
// this must not fall back to codec.Decrypt: a frame that only decodes
// after decryption is itself the bug.
func (r *recordingSender) last() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.text) == 0 {
		return nil
	}
	var out map[string]any
	json.Unmarshal(r.text[len(r.text)-1], &out)
	return out
}

type alwaysApprove struct{}

func (alwaysApprove) RequestApproval(ctx context.Context, deviceID, deviceName string) bool {
	return true
}

type alwaysReject struct{}

func (alwaysReject) RequestApproval(ctx context.Context, deviceID, deviceName string) bool {
	return false
}

func newTestHost(approval session.ApprovalSource) *Host {
	streamingSvc := streaming.New(capture.NewManager(nil), camera.New(nil), media.NewNullController(), nil)
	router := dispatch.NewRouter(nil)
	streamingSvc.Register(router)

	return &Host{
		Config:    &config.Config{PCName: "test-pc"},
		Approval:  approval,
		Registry:  session.NewRegistry(),
		Router:    router,
		Streaming: streamingSvc,
	}
}

func TestHandshakeWithValidIdentityAndApprovalSucceeds(t *testing.T) {
	h := newTestHost(alwaysApprove{})
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)

	frame, _ := json.Marshal(map[string]any{"device_id": "dev-1", "device_name": "Alice's Phone"})
	h.handleHandshake(sess, frame)

	if sess.State() != session.Running {
		t.Fatalf("state = %v, want Running", sess.State())
	}
	resp := sender.last()
	if resp == nil || resp["type"] != "auth_success" {
		t.Fatalf("response = %+v, want auth_success", resp)
	}
	if _, ok := h.Registry.Get("dev-1"); !ok {
		t.Fatal("expected session registered under device_id")
	}
}

func TestHandshakeMissingDeviceIDIsRejected(t *testing.T) {
	h := newTestHost(alwaysApprove{})
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)

	frame, _ := json.Marshal(map[string]any{"device_name": "No ID"})
	h.handleHandshake(sess, frame)

	if sess.State() != session.Terminated {
		t.Fatalf("state = %v, want Terminated", sess.State())
	}
}

func TestHandshakeRejectedApprovalTerminatesSession(t *testing.T) {
	h := newTestHost(alwaysReject{})
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)

	frame, _ := json.Marshal(map[string]any{"device_id": "dev-2", "device_name": "Bob's Tablet"})
	h.handleHandshake(sess, frame)

	if sess.State() != session.Terminated {
		t.Fatalf("state = %v, want Terminated", sess.State())
	}
	if _, ok := h.Registry.Get("dev-2"); ok {
		t.Fatal("rejected session must not be registered")
	}
}

func TestHandshakeAcceptsEncryptedFirstFrame(t *testing.T) {
	h := newTestHost(alwaysApprove{})
	sender := &recordingSender{}
	sess := session.New(context.Background(), sender)

	plain, _ := json.Marshal(map[string]any{"device_id": "dev-3", "device_name": "Encrypted Client"})
	cipher, err := codec.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	h.handleHandshake(sess, cipher)

	if sess.State() != session.Running {
		t.Fatalf("state = %v, want Running", sess.State())
	}
}
