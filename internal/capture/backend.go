package capture

import (
	"fmt"
	"image"
)

// Monitor describes one physical display as enumerated by the OS. Index is
// 1-based internally, mirroring the OS convention; the 0-based client-facing
// index used on the wire is derived at the streaming layer, not here.
type Monitor struct {
	Index     int
	Name      string
	Width     int
	Height    int
	IsPrimary bool
}

// Backend is the platform-specific display-capture collaborator. The only
// real implementation is the GDI backend for Windows, behind a build tag;
// other platforms use the stub. Manager.ListMonitors calls through to the
// backend on every call and does not cache its result.
type Backend interface {
	ListMonitors() ([]Monitor, error)
	Grab(monitorIndex int) (*image.RGBA, error)
}

// ErrMonitorNotFound is returned by Grab when monitorIndex does not name a
// currently enumerated monitor.
type ErrMonitorNotFound struct{ Index int }

func (e ErrMonitorNotFound) Error() string {
	return fmt.Sprintf("capture: monitor %d not found", e.Index)
}

// defaultBackend is swappable for tests and for platform-specific builds
// that register a real backend via SetBackend.
var defaultBackend Backend = newStubBackend()

// SetBackend overrides the active capture backend, letting a platform build
// install its real display-grabbing implementation at init time.
func SetBackend(b Backend) {
	defaultBackend = b
}
