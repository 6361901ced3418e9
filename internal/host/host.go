// Package host wires the session state machine (§4.C) to the transport
// layer and command dispatcher: it is the glue a running nexremoted
// process uses to turn an accepted connection into an authenticated,
// dispatched session.
package host

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/audit"
	"github.com/AvishakeAdhikary/NexRemote/internal/codec"
	"github.com/AvishakeAdhikary/NexRemote/internal/config"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
	"github.com/AvishakeAdhikary/NexRemote/internal/streaming"
	"github.com/AvishakeAdhikary/NexRemote/internal/transport"
)

var log = logging.L("host")

// Capabilities is advertised to a client on auth_success, describing
// what this server build supports.
var Capabilities = map[string]bool{
	"keyboard":         true,
	"mouse":            true,
	"gamepad":          true,
	"screen_streaming": true,
	"camera_streaming": true,
	"file_transfer":    true,
	"clipboard":        true,
	"multi_display":    true,
}

// Host accepts connections from a transport.Server and drives each one
// through the session state machine before handing it to the dispatcher.
type Host struct {
	Config    *config.Config
	Approval  session.ApprovalSource
	Trusted   *config.TrustedDevices
	Registry  *session.Registry
	Router    *dispatch.Router
	Streaming *streaming.Service
	Audit     *audit.Logger
}

// Accept implements transport.Accept: it is invoked once per inbound
// connection, on its own goroutine, by the transport server.
func (h *Host) Accept(conn *transport.Conn) {
	sess := session.New(context.Background(), conn)
	limiter := dispatch.NewSessionLimiter()

	authTimer := time.AfterFunc(session.AuthTimeout, func() {
		if sess.State() == session.AwaitingAuth {
			log.Warn("auth timeout", "remote", conn.RemoteAddr)
			sess.Terminate()
		}
	})
	defer authTimer.Stop()

	authed := make(chan struct{})
	var authOnce bool

	conn.ReadLoop(
		func(data []byte) {
			if sess.State() == session.AwaitingAuth {
				authOnce = true
				h.handleHandshake(sess, data)
				close(authed)
				return
			}
			if !sess.IsApproved() {
				return
			}
			h.Router.Handle(sess.Context(), sess, limiter, data)
		},
		func(data []byte) {
			// Binary frames flow server-to-client only (camera/screen);
			// unexpected inbound binary data is ignored.
		},
	)

	if authOnce {
		<-authed
	}
	sess.Terminate()
	if h.Streaming != nil {
		h.Streaming.Forget(sess)
	}
	h.Registry.Remove(sess.DeviceID)
}

type handshakeRequest struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
}

// handleHandshake implements §4.C's AwaitingAuth/Approving transition for
// the session's first frame.
func (h *Host) handleHandshake(sess *session.ClientSession, data []byte) {
	plain, err := codec.Decrypt(data)
	if err != nil {
		// Handshake frames may arrive plaintext before the client has
		// confirmed the server's fixed-key contract; fall back silently.
		plain = data
	}

	var req handshakeRequest
	if err := json.Unmarshal(plain, &req); err != nil || req.DeviceID == "" || req.DeviceName == "" {
		h.reject(sess, "auth_failed", "missing device identity")
		return
	}

	sess.DeviceID = req.DeviceID
	sess.DeviceName = req.DeviceName
	sess.SetState(session.Approving)

	approvalCtx, cancel := context.WithTimeout(sess.Context(), session.ApprovalTimeout)
	defer cancel()

	approved := h.Approval.RequestApproval(approvalCtx, req.DeviceID, req.DeviceName)
	if !approved {
		h.reject(sess, "connection_rejected", "connection not approved")
		return
	}

	sess.SetState(session.Running)
	h.Registry.Add(sess)
	if h.Trusted != nil {
		if err := h.Trusted.Remember(sess.DeviceID, sess.DeviceName); err != nil {
			log.Warn("persist trusted device failed", "device_id", sess.DeviceID, "error", err)
		}
	}
	if h.Audit != nil {
		h.Audit.Log("session_authenticated", sess.DeviceID, map[string]any{"device_name": sess.DeviceName})
	}

	success, _ := json.Marshal(map[string]any{
		"type":         "auth_success",
		"server_name":  h.Config.PCName,
		"capabilities": Capabilities,
	})
	// The handshake exchange is intentionally unencrypted: the client has
	// no way to confirm the fixed key applies until it sees this frame.
	if err := sess.Sender.SendText(success); err != nil {
		log.Warn("send auth_success failed", "device_id", sess.DeviceID, "error", err)
		sess.Terminate()
		return
	}

	if h.Streaming != nil {
		h.Streaming.StartMediaStatePush(sess)
	}
}

func (h *Host) reject(sess *session.ClientSession, msgType, reason string) {
	payload, _ := json.Marshal(map[string]any{"type": msgType, "reason": reason})
	sess.Sender.SendText(payload) // plaintext: the client may not share the fixed key yet
	if h.Audit != nil {
		h.Audit.Log("session_rejected", sess.DeviceID, map[string]any{"reason": reason})
	}
	sess.Terminate()
}

// NewApprovalSource builds the default headless ApprovalSource from cfg
// and the trusted-device store.
func NewApprovalSource(cfg *config.Config, trusted *config.TrustedDevices) session.ApprovalSource {
	return &session.AutoApprovalSource{
		RequireApproval: cfg.RequireApproval,
		AutoApprove:     cfg.AutoApprove,
		Trusted:         trusted,
	}
}
