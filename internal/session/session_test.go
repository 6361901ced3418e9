package session

import (
	"context"
	"sync"
	"testing"
)

type fakeSender struct {
	mu     sync.Mutex
	text   [][]byte
	binary [][]byte
	closed bool
}

func (f *fakeSender) SendText(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, data)
	return nil
}

func (f *fakeSender) SendBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, data)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestSessionTerminateClosesTransportAndCancelsStreams(t *testing.T) {
	sender := &fakeSender{}
	s := New(context.Background(), sender)
	s.SetState(Running)

	ctx := s.StartStream(StreamScreen, 0)

	s.Terminate()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("stream context should be cancelled after Terminate")
	}
	if !sender.closed {
		t.Fatal("transport should be closed after Terminate")
	}
	if s.State() != Terminated {
		t.Fatalf("state = %v, want Terminated", s.State())
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	s := New(context.Background(), &fakeSender{})
	s.Terminate()
	s.Terminate() // must not panic or double-close
}

func TestStartStreamIsIdempotentRefresh(t *testing.T) {
	s := New(context.Background(), &fakeSender{})
	first := s.StartStream(StreamScreen, 0)
	second := s.StartStream(StreamScreen, 0)

	select {
	case <-first.Done():
	default:
		t.Fatal("starting the same stream again should cancel the previous context")
	}
	select {
	case <-second.Done():
		t.Fatal("the new stream context should not be cancelled")
	default:
	}

	ids := s.ActiveSubIDs(StreamScreen)
	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("ActiveSubIDs = %v, want [0]", ids)
	}
}

func TestStopStreamsOfKindStopsAllMonitorsForSession(t *testing.T) {
	s := New(context.Background(), &fakeSender{})
	c0 := s.StartStream(StreamScreen, 0)
	c1 := s.StartStream(StreamScreen, 1)

	s.StopStreamsOfKind(StreamScreen)

	for i, c := range []context.Context{c0, c1} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("stream %d should be cancelled", i)
		}
	}
	if len(s.ActiveSubIDs(StreamScreen)) != 0 {
		t.Fatal("no streams should remain active")
	}
}

func TestStopStreamsOfKindTwiceIsNoOp(t *testing.T) {
	s := New(context.Background(), &fakeSender{})
	s.StartStream(StreamScreen, 0)
	s.StopStreamsOfKind(StreamScreen)
	s.StopStreamsOfKind(StreamScreen) // must not panic
}

func TestPendingApprovalResolveOnce(t *testing.T) {
	p := NewPendingApproval()
	done := make(chan struct{})

	p.Resolve(true)
	p.Resolve(false) // second call has no effect

	if got := p.Wait(done); got != true {
		t.Fatalf("Wait() = %v, want true", got)
	}
}

func TestPendingApprovalTimesOutAsReject(t *testing.T) {
	p := NewPendingApproval()
	done := make(chan struct{})
	close(done)

	if got := p.Wait(done); got != false {
		t.Fatalf("Wait() on timeout = %v, want false", got)
	}
}

func TestRegistryAddThenRemove(t *testing.T) {
	reg := NewRegistry()
	s := New(context.Background(), &fakeSender{})
	s.DeviceID = "d1"
	s.SetState(Running)
	reg.Add(s)

	if _, ok := reg.Get("d1"); !ok {
		t.Fatal("expected session d1 to be registered")
	}

	reg.Remove("d1")
	if _, ok := reg.Get("d1"); ok {
		t.Fatal("expected session d1 to be removed")
	}
}

func TestAutoApprovalSourceHonorsPolicy(t *testing.T) {
	a := &AutoApprovalSource{RequireApproval: true, AutoApprove: true}
	if !a.RequestApproval(context.Background(), "d1", "phone") {
		t.Fatal("auto_approve=true should approve")
	}

	b := &AutoApprovalSource{RequireApproval: true, AutoApprove: false}
	if b.RequestApproval(context.Background(), "d2", "phone") {
		t.Fatal("untrusted device with no auto_approve should not be approved without a human")
	}

	c := &AutoApprovalSource{RequireApproval: false}
	if !c.RequestApproval(context.Background(), "d3", "phone") {
		t.Fatal("require_approval=false should always approve")
	}
}
