package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/ratelimit"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
	"github.com/AvishakeAdhikary/NexRemote/internal/workerpool"
)

type fakeSender struct {
	mu   sync.Mutex
	text [][]byte
}

func (f *fakeSender) SendText(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, data)
	return nil
}
func (f *fakeSender) SendBinary(data []byte) error { return nil }
func (f *fakeSender) Close() error                 { return nil }

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.text)
}

func TestDecodeCapturesTypeActionAndPayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"keyboard","action":"press","key":"a"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != "keyboard" || env.Action != "press" {
		t.Fatalf("got %+v", env)
	}
	if env.GetString("key", "") != "a" {
		t.Fatalf("payload key = %q, want a", env.GetString("key", ""))
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestRouterDispatchesKnownTypeInline(t *testing.T) {
	r := NewRouter(nil)
	called := make(chan struct{}, 1)
	r.Register("keyboard", false, func(ctx context.Context, s *session.ClientSession, env Envelope) (any, error) {
		called <- struct{}{}
		return nil, nil
	})

	sender := &fakeSender{}
	s := session.New(context.Background(), sender)
	limiter := ratelimit.New(1000, time.Second)

	r.Handle(context.Background(), s, limiter, []byte(`{"type":"keyboard","action":"press"}`))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestRouterDropsUnknownType(t *testing.T) {
	r := NewRouter(nil)
	sender := &fakeSender{}
	s := session.New(context.Background(), sender)
	limiter := ratelimit.New(1000, time.Second)

	r.Handle(context.Background(), s, limiter, []byte(`{"type":"not_a_real_type"}`))
	time.Sleep(10 * time.Millisecond)
	if sender.count() != 0 {
		t.Fatal("unknown type should never produce a response")
	}
}

func TestRouterRateLimitsPerSession(t *testing.T) {
	r := NewRouter(nil)
	var handled int32
	var mu sync.Mutex
	r.Register("keyboard", false, func(ctx context.Context, s *session.ClientSession, env Envelope) (any, error) {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil, nil
	})

	sender := &fakeSender{}
	s := session.New(context.Background(), sender)
	limiter := ratelimit.New(5, time.Second)

	for i := 0; i < 10; i++ {
		r.Handle(context.Background(), s, limiter, []byte(`{"type":"keyboard"}`))
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if handled != 5 {
		t.Fatalf("handled = %d, want 5 (rate limit)", handled)
	}
}

func TestRouterOffloadsBlockingHandlerToPool(t *testing.T) {
	pool := workerpool.New(2, 4)
	r := NewRouter(pool)
	called := make(chan struct{}, 1)
	r.Register("task_manager", true, func(ctx context.Context, s *session.ClientSession, env Envelope) (any, error) {
		called <- struct{}{}
		return map[string]string{"ok": "true"}, nil
	})

	sender := &fakeSender{}
	s := session.New(context.Background(), sender)
	limiter := ratelimit.New(1000, time.Second)

	r.Handle(context.Background(), s, limiter, []byte(`{"type":"task_manager","action":"system_info"}`))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("blocking handler was not invoked via pool")
	}

	deadline := time.Now().Add(time.Second)
	for sender.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sender.count() != 1 {
		t.Fatal("expected one encrypted response frame")
	}
}
