package capture

import (
	"testing"
	"time"
)

func TestResolvePresetKnownNames(t *testing.T) {
	for _, name := range []string{"native", "1080p", "720p", "480p", "360p"} {
		if _, err := ResolvePreset(name); err != nil {
			t.Fatalf("ResolvePreset(%q) returned error: %v", name, err)
		}
	}
}

func TestResolvePresetUnknownName(t *testing.T) {
	if _, err := ResolvePreset("4k"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestTargetSizeDownscalesPreservingAspect(t *testing.T) {
	p, _ := ResolvePreset("720p")
	w, h := targetSize(3840, 2160, p)
	if w > 1280 || h > 720 {
		t.Fatalf("targetSize = %dx%d, want within 1280x720", w, h)
	}
	// aspect ratio preserved: 3840/2160 == 16/9, so 1280x720 exactly
	if w != 1280 || h != 720 {
		t.Fatalf("targetSize = %dx%d, want 1280x720", w, h)
	}
}

func TestTargetSizeNeverUpscales(t *testing.T) {
	p, _ := ResolvePreset("1080p")
	w, h := targetSize(640, 480, p)
	if w != 640 || h != 480 {
		t.Fatalf("targetSize = %dx%d, want unchanged 640x480", w, h)
	}
}

func TestTargetSizeNativeIsUnchanged(t *testing.T) {
	p, _ := ResolvePreset("native")
	w, h := targetSize(1234, 567, p)
	if w != 1234 || h != 567 {
		t.Fatalf("targetSize = %dx%d, want unchanged", w, h)
	}
}

func TestFrameSlotSnapshotIsCopyNotAlias(t *testing.T) {
	var slot FrameSlot
	data := []byte{1, 2, 3}
	slot.Set(data)

	snap := slot.Snapshot()
	snap[0] = 99

	if data[0] != 1 {
		t.Fatal("mutating the snapshot must not affect the stored frame")
	}
}

func TestFrameSlotSnapshotNilBeforeFirstSet(t *testing.T) {
	var slot FrameSlot
	if slot.Snapshot() != nil {
		t.Fatal("expected nil snapshot before first Set")
	}
}

func TestFrameSlotOverwriteDropsStale(t *testing.T) {
	var slot FrameSlot
	slot.Set([]byte{1})
	slot.Set([]byte{2})
	if got := slot.Snapshot(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("Snapshot() = %v, want [2]", got)
	}
}

func TestStubBackendListsOneMonitor(t *testing.T) {
	b := newStubBackend()
	monitors, err := b.ListMonitors()
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	if len(monitors) != 1 || !monitors[0].IsPrimary {
		t.Fatalf("ListMonitors = %+v, want one primary monitor", monitors)
	}
}

func TestStubBackendGrabUnknownMonitorErrors(t *testing.T) {
	b := newStubBackend()
	if _, err := b.Grab(7); err == nil {
		t.Fatal("expected ErrMonitorNotFound for unknown monitor index")
	}
}

func TestManagerLazilyStartsAndStopsProducer(t *testing.T) {
	m := NewManager(newStubBackend())
	slot, _, release := m.Subscribe(1, Params{FPS: 30, Quality: 60, Preset: "native"})

	deadline := time.Now().Add(2 * time.Second)
	for slot.Snapshot() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if slot.Snapshot() == nil {
		t.Fatal("expected a frame to be produced after subscribing")
	}

	release()

	m.mu.Lock()
	p := m.producers[1]
	m.mu.Unlock()
	p.mu.Lock()
	stopped := p.cancel == nil
	p.mu.Unlock()
	if !stopped {
		t.Fatal("expected the producer to stop after the last reader released")
	}
}

func TestParamsNormalizeClampsRanges(t *testing.T) {
	p := Params{FPS: 0, Quality: 0, Preset: ""}.normalize()
	if p.FPS != 15 || p.Quality != 70 || p.Preset != "native" {
		t.Fatalf("normalize() = %+v, want defaults", p)
	}

	p2 := Params{FPS: 999, Quality: 999}.normalize()
	if p2.FPS != 60 || p2.Quality != 100 {
		t.Fatalf("normalize() = %+v, want clamped to max", p2)
	}
}
