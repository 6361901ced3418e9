package session

import (
	"context"

	"github.com/AvishakeAdhikary/NexRemote/internal/config"
)

// ApprovalSource is implemented by the embedding host process to decide
// whether a new device may connect. It is the out-of-scope collaborator
// named in SPEC_FULL.md §6 — a GUI host would prompt the user here.
type ApprovalSource interface {
	RequestApproval(ctx context.Context, deviceID, deviceName string) bool
}

// AutoApprovalSource resolves approval immediately according to policy,
// with no human in the loop. It lets the core run headless (tests, CI, a
// trust-on-first-use deployment) without a host GUI attached.
type AutoApprovalSource struct {
	RequireApproval bool
	AutoApprove     bool
	Trusted         *config.TrustedDevices
}

// RequestApproval approves immediately if require_approval is off,
// auto_approve is set or the device is already trusted; otherwise it
// rejects, since there is no human
// to ask. A real GUI host supplies its own ApprovalSource instead.
func (a *AutoApprovalSource) RequestApproval(_ context.Context, deviceID, _ string) bool {
	if !a.RequireApproval {
		return true
	}
	if a.AutoApprove {
		return true
	}
	if a.Trusted != nil && a.Trusted.IsTrusted(deviceID) {
		return true
	}
	return false
}
