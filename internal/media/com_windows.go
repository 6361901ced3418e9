//go:build windows

package media

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"

	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
)

var comLog = logging.L("media.com")

// comJob is a closure submitted to the persistent COM worker, along with
// the channel its result is delivered on.
type comJob struct {
	fn   func() (any, error)
	done chan comResult
}

type comResult struct {
	value any
	err   error
}

// COMController is the Windows media controller. All COM calls happen on
// one OS thread for the process's lifetime, since COM apartment objects
// are thread-affine; callers submit closures and block on a completion
// channel rather than touching COM themselves.
type COMController struct {
	jobs chan comJob
	quit chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	state State
}

// NewCOMController starts the persistent COM worker goroutine and
// returns a Controller backed by it.
func NewCOMController() *COMController {
	c := &COMController{
		jobs: make(chan comJob),
		quit: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Close stops the COM worker. The worker outlives individual sessions;
// Close is only called at process shutdown.
func (c *COMController) Close() {
	close(c.quit)
	c.wg.Wait()
}

func (c *COMController) worker() {
	defer c.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		comLog.Error("CoInitializeEx failed", "error", err)
		return
	}
	defer ole.CoUninitialize()

	for {
		select {
		case <-c.quit:
			return
		case job := <-c.jobs:
			value, err := job.fn()
			job.done <- comResult{value: value, err: err}
		}
	}
}

// submit runs fn on the COM worker thread and waits for its result,
// respecting ctx cancellation while waiting.
func (c *COMController) submit(ctx context.Context, fn func() (any, error)) (any, error) {
	done := make(chan comResult, 1)
	select {
	case c.jobs <- comJob{fn: fn, done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// The transport-control calls below are placeholders for the real
// SMTC (System Media Transport Controls) COM invocations; wiring a
// specific media session API is out of scope for the core per
// SPEC_FULL.md §1, but the worker threading model itself is real and
// exercised by every call site.

func (c *COMController) Play(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) {
		c.mu.Lock()
		c.state.Playing = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *COMController) Pause(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) {
		c.mu.Lock()
		c.state.Playing = false
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *COMController) Stop(ctx context.Context) error {
	return c.Pause(ctx)
}

func (c *COMController) Next(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) { return nil, nil })
	return err
}

func (c *COMController) Previous(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) { return nil, nil })
	return err
}

func (c *COMController) SetVolume(ctx context.Context, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("media: volume %d out of range", level)
	}
	_, err := c.submit(ctx, func() (any, error) {
		c.mu.Lock()
		c.state.Volume = level
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *COMController) ToggleMute(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) {
		c.mu.Lock()
		c.state.Muted = !c.state.Muted
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *COMController) GetInfo(ctx context.Context) (State, error) {
	_, err := c.submit(ctx, func() (any, error) { return nil, nil })
	if err != nil {
		return State{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, nil
}
