// Package camera implements the single active webcam capture pipeline:
// one producer goroutine at a time, switchable between device indices,
// publishing JPEG frames into a shared FrameSlot exactly like the screen
// capture pipeline in internal/capture.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var log = logging.L("camera")

// maxDeviceIndex bounds enumeration to indices 0-9, matching the original
// client's device-picker range.
const maxDeviceIndex = 9

// Backend is the platform-specific webcam collaborator.
type Backend interface {
	ListDevices() ([]Device, error)
	Grab(deviceIndex int) (*image.RGBA, error)
}

// Device describes one enumerated webcam, including its native advertised
// mode: the push loop reads frames at this FPS rather than a fixed rate.
type Device struct {
	Index  int
	Name   string
	Width  int
	Height int
	FPS    int
}

// ErrDeviceNotFound is returned by Grab for an unopenable device index.
type ErrDeviceNotFound struct{ Index int }

func (e ErrDeviceNotFound) Error() string {
	return fmt.Sprintf("camera: device %d not found", e.Index)
}

// Capture is the process-wide singleton webcam pipeline. Only one device
// may be active at a time; switching devices joins the old producer
// goroutine before starting the new one.
type Capture struct {
	backend Backend
	slot    capture.FrameSlot

	mu      sync.Mutex
	active  int
	quality int
	cancel  context.CancelFunc
	done    chan struct{}
	readers int
}

// New creates a camera Capture bound to backend. Passing nil uses the
// portable stub backend.
func New(backend Backend) *Capture {
	if backend == nil {
		backend = newStubBackend()
	}
	return &Capture{backend: backend, active: 0, quality: 70}
}

// ListDevices reports the webcams the backend currently sees.
func (c *Capture) ListDevices() ([]Device, error) {
	return c.backend.ListDevices()
}

// Frames returns the shared FrameSlot consumers snapshot from.
func (c *Capture) Frames() *capture.FrameSlot {
	return &c.slot
}

// Start attaches a reader at the given device index and quality, switching
// the active device if needed. Safe to call repeatedly; each call must be
// paired with exactly one Stop.
func (c *Capture) Start(deviceIndex, quality int) error {
	if deviceIndex < 0 || deviceIndex > maxDeviceIndex {
		return ErrDeviceNotFound{Index: deviceIndex}
	}
	if quality <= 0 {
		quality = 70
	}
	if quality > 100 {
		quality = 100
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.readers++
	c.quality = quality

	if c.cancel != nil && c.active == deviceIndex {
		return nil
	}
	c.switchDeviceLocked(deviceIndex)
	return nil
}

// Stop detaches a reader, stopping the producer once no readers remain.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readers > 0 {
		c.readers--
	}
	if c.readers == 0 {
		c.stopLocked()
	}
}

// SwitchDevice changes the active device without altering the reader
// count. The streaming camera handler does not call it; a new camera start
// there goes through Stop and Start instead.
func (c *Capture) SwitchDevice(deviceIndex int) error {
	if deviceIndex < 0 || deviceIndex > maxDeviceIndex {
		return ErrDeviceNotFound{Index: deviceIndex}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readers == 0 {
		c.active = deviceIndex
		return nil
	}
	c.switchDeviceLocked(deviceIndex)
	return nil
}

func (c *Capture) switchDeviceLocked(deviceIndex int) {
	c.stopLocked()
	c.active = deviceIndex

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, deviceIndex, c.done)
}

func (c *Capture) stopLocked() {
	if c.cancel == nil {
		return
	}
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	cancel()
	<-done
}

func (c *Capture) run(ctx context.Context, deviceIndex int, done chan struct{}) {
	defer close(done)

	fps := c.deviceFPS(deviceIndex)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := c.backend.Grab(deviceIndex)
		if err != nil {
			log.Warn("camera grab failed", "device", deviceIndex, "error", err)
			continue
		}

		c.mu.Lock()
		quality := c.quality
		c.mu.Unlock()

		encoded, err := encodeJPEG(frame, quality)
		if err != nil {
			log.Warn("camera encode failed", "device", deviceIndex, "error", err)
			continue
		}
		c.slot.Set(encoded)
	}
}

// defaultFPS is used when the backend can't report a device's native rate
// (enumeration failed, or the device is absent from the list it returned).
const defaultFPS = 15

// deviceFPS looks up deviceIndex's advertised frame rate from ListDevices,
// falling back to defaultFPS when the backend has nothing to offer.
func (c *Capture) deviceFPS(deviceIndex int) int {
	devices, err := c.backend.ListDevices()
	if err != nil {
		return defaultFPS
	}
	for _, d := range devices {
		if d.Index == deviceIndex && d.FPS > 0 {
			return d.FPS
		}
	}
	return defaultFPS
}

func encodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
