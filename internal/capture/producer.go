package capture

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var log = logging.L("capture")

// Params are the mutable, per-monitor knobs a session can change mid-stream
// via set_fps / set_quality / set_resolution.
type Params struct {
	FPS     int
	Quality int
	Preset  string
}

func (p Params) normalize() Params {
	if p.FPS <= 0 {
		p.FPS = 15
	}
	if p.FPS > 60 {
		p.FPS = 60
	}
	if p.Quality <= 0 {
		p.Quality = 70
	}
	if p.Quality > 100 {
		p.Quality = 100
	}
	if p.Preset == "" {
		p.Preset = "native"
	}
	return p
}

// monitorProducer owns one monitor's capture loop. It runs only while at
// least one reader is attached, and is torn down once the last reader
// detaches, per SPEC_FULL.md §4.G's lazy-start/stop contract.
type monitorProducer struct {
	index   int
	backend Backend
	slot    FrameSlot

	mu      sync.Mutex
	params  Params
	readers int32
	cancel  context.CancelFunc
	done    chan struct{}
}

func newMonitorProducer(index int, backend Backend) *monitorProducer {
	return &monitorProducer{index: index, backend: backend, params: Params{}.normalize()}
}

// SetParams updates fps/quality/resolution for the next capture cycle. It
// never restarts the loop; the new values are picked up on the following
// iteration.
func (p *monitorProducer) SetParams(params Params) {
	p.mu.Lock()
	p.params = params.normalize()
	p.mu.Unlock()
}

func (p *monitorProducer) currentParams() Params {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// acquire increments the reader count, starting the capture loop on the
// transition from 0 to 1.
func (p *monitorProducer) acquire() {
	if atomic.AddInt32(&p.readers, 1) == 1 {
		p.start()
	}
}

// release decrements the reader count, stopping the capture loop once it
// reaches 0.
func (p *monitorProducer) release() {
	if atomic.AddInt32(&p.readers, -1) == 0 {
		p.stop()
	}
}

func (p *monitorProducer) start() {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.run(ctx, p.done)
}

func (p *monitorProducer) stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the per-monitor capture loop: grab, scale, encode, publish, pace.
func (p *monitorProducer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	nextAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		params := p.currentParams()

		frame, err := p.backend.Grab(p.index)
		if err != nil {
			log.Warn("capture grab failed", "monitor", p.index, "error", err)
			time.Sleep(200 * time.Millisecond)
			continue
		}

		preset, err := ResolvePreset(params.Preset)
		if err != nil {
			preset, _ = ResolvePreset("native")
		}
		scaled := scaleImage(frame, preset, params.Quality)

		encoded, err := encodeJPEG(scaled, params.Quality)
		if err != nil {
			log.Warn("capture encode failed", "monitor", p.index, "error", err)
		} else {
			p.slot.Set(encoded)
		}

		interval := time.Second / time.Duration(params.FPS)
		nextAt = nextAt.Add(interval)
		sleep := time.Until(nextAt)
		if sleep <= 0 {
			// fell behind; resync rather than bursting to catch up
			nextAt = time.Now()
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// encodeJPEG encodes an RGBA image at the given JPEG quality (1-100).
func encodeJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
