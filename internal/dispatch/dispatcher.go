package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/codec"
	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
	"github.com/AvishakeAdhikary/NexRemote/internal/ratelimit"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
	"github.com/AvishakeAdhikary/NexRemote/internal/workerpool"
)

var log = logging.L("dispatch")

// messagesPerSecond is the sliding-window rate limit applied per session.
const (
	messagesPerSecond = 1000
	ratelimitWindow   = time.Second
)

// HandlerFunc handles one decoded envelope for one session. A non-nil
// response is JSON-marshalled, encrypted, and sent back as a text frame.
type HandlerFunc func(ctx context.Context, s *session.ClientSession, env Envelope) (response any, err error)

type route struct {
	handler  HandlerFunc
	blocking bool
}

// Router validates, rate-limits, and dispatches decoded envelopes to
// registered handlers, one independent task per inbound message.
type Router struct {
	routes map[string]route
	pool   *workerpool.Pool
}

// NewRouter creates a Router offloading blocking handlers onto pool.
func NewRouter(pool *workerpool.Pool) *Router {
	return &Router{routes: make(map[string]route), pool: pool}
}

// Register binds a message type to a handler. blocking selects worker-pool
// offload (filesystem, process enumeration, COM, device I/O) versus inline
// execution (pure in-memory input handlers).
func (r *Router) Register(msgType string, blocking bool, handler HandlerFunc) {
	r.routes[msgType] = route{handler: handler, blocking: blocking}
}

// Handle decodes one decrypted text frame and routes it, dispatching on an
// independent task per SPEC_FULL.md §4.E. It never blocks the caller for
// longer than it takes to decode the envelope and check the rate limit.
func (r *Router) Handle(ctx context.Context, s *session.ClientSession, limiter *ratelimit.Limiter, data []byte) {
	if !limiter.Allow() {
		return
	}

	env, err := Decode(data)
	if err != nil {
		log.Warn("malformed envelope", "device", s.DeviceID, "error", err)
		return
	}

	rt, ok := r.routes[env.Type]
	if !ok {
		log.Warn("unknown message type", "device", s.DeviceID, "type", env.Type)
		return
	}

	task := func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panicked", "device", s.DeviceID, "type", env.Type, "panic", rec)
			}
		}()

		resp, err := rt.handler(ctx, s, env)
		if err != nil {
			log.Warn("handler failed", "device", s.DeviceID, "type", env.Type, "error", err)
			return
		}
		if resp == nil {
			return
		}
		if err := r.send(s, resp); err != nil {
			log.Warn("failed to send response", "device", s.DeviceID, "type", env.Type, "error", err)
		}
	}

	if rt.blocking && r.pool != nil {
		if !r.pool.Submit(task) {
			log.Warn("worker pool full, dropping message", "device", s.DeviceID, "type", env.Type)
		}
		return
	}
	s.Go(task)
}

func (r *Router) send(s *session.ClientSession, payload any) error {
	plain, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	cipher, err := codec.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypt response: %w", err)
	}
	return s.Sender.SendText(cipher)
}

// NewSessionLimiter builds the per-session sliding-window rate limiter
// used ahead of Handle.
func NewSessionLimiter() *ratelimit.Limiter {
	return ratelimit.New(messagesPerSecond, ratelimitWindow)
}
