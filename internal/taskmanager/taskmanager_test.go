package taskmanager

import (
	"context"
	"os"
	"testing"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

type nullSender struct{}

func (nullSender) SendText(data []byte) error   { return nil }
func (nullSender) SendBinary(data []byte) error { return nil }
func (nullSender) Close() error                 { return nil }

func newTestSession() *session.ClientSession {
	return session.New(context.Background(), nullSender{})
}

func decode(t *testing.T, raw string) dispatch.Envelope {
	t.Helper()
	env, err := dispatch.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestListProcessesReturnsSelf(t *testing.T) {
	resp, err := Handle(context.Background(), newTestSession(), decode(t, `{"type":"task_manager","action":"list_processes","limit":1000}`))
	if err != nil {
		t.Fatalf("list_processes: %v", err)
	}
	procs := resp.(map[string]any)["processes"].([]processInfo)
	if len(procs) == 0 {
		t.Fatal("expected at least one process")
	}

	selfPID := int32(os.Getpid())
	found := false
	for _, p := range procs {
		if p.PID == selfPID {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected own process in listing")
	}
}

func TestEndProcessRequiresPID(t *testing.T) {
	_, err := Handle(context.Background(), newTestSession(), decode(t, `{"type":"task_manager","action":"end_process"}`))
	if err == nil {
		t.Fatal("expected error without pid")
	}
}

func TestEndProcessRejectsUnknownPID(t *testing.T) {
	_, err := Handle(context.Background(), newTestSession(), decode(t, `{"type":"task_manager","action":"end_process","pid":999999}`))
	if err == nil {
		t.Fatal("expected error for nonexistent pid")
	}
}

func TestSystemInfoReportsCPUAndMemory(t *testing.T) {
	resp, err := Handle(context.Background(), newTestSession(), decode(t, `{"type":"task_manager","action":"system_info"}`))
	if err != nil {
		t.Fatalf("system_info: %v", err)
	}
	snap := resp.(map[string]any)["info"].(systemSnapshot)
	if snap.CPUCount <= 0 {
		t.Fatalf("cpuCount = %d, want > 0", snap.CPUCount)
	}
	if snap.MemoryTotalMB <= 0 {
		t.Fatalf("memoryTotalMb = %v, want > 0", snap.MemoryTotalMB)
	}
}

func TestUnknownActionIsRejected(t *testing.T) {
	_, err := Handle(context.Background(), newTestSession(), decode(t, `{"type":"task_manager","action":"not_real"}`))
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}
