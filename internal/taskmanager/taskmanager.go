// Package taskmanager implements the task_manager message type:
// listing, inspecting, and terminating host processes, plus a
// point-in-time system resource snapshot.
package taskmanager

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
)

// Register binds the task_manager message type to this package's
// handler. Process enumeration and termination block on OS calls, so
// the dispatcher offloads it to the worker pool.
func Register(router *dispatch.Router) {
	router.Register("task_manager", true, Handle)
}

// Handle dispatches one task_manager action to its implementation.
func Handle(ctx context.Context, s *session.ClientSession, env dispatch.Envelope) (any, error) {
	switch env.Action {
	case "list_processes":
		return listProcesses(env)
	case "end_process", "kill_process":
		return endProcess(env)
	case "system_info":
		return systemInfo()
	default:
		return nil, fmt.Errorf("taskmanager: unknown action %q", env.Action)
	}
}

type processInfo struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	User        string  `json:"user,omitempty"`
	CPUPercent  float64 `json:"cpuPercent"`
	MemoryMB    float64 `json:"memoryMb"`
	Status      string  `json:"status"`
	CommandLine string  `json:"commandLine,omitempty"`
}

func listProcesses(env dispatch.Envelope) (any, error) {
	search := strings.ToLower(env.GetString("search", ""))
	sortBy := env.GetString("sortBy", "cpu")
	sortDesc := env.GetBool("sortDesc", true)
	limit := env.GetInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	infos := make([]processInfo, 0, len(procs))
	for _, p := range procs {
		info := describe(p)
		if info == nil {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(info.Name), search) &&
			!strings.Contains(strings.ToLower(info.User), search) {
			continue
		}
		infos = append(infos, *info)
	}

	sortProcesses(infos, sortBy, sortDesc)
	if len(infos) > limit {
		infos = infos[:limit]
	}

	return map[string]any{"type": "process_list", "processes": infos, "total": len(infos)}, nil
}

func describe(p *process.Process) *processInfo {
	name, err := p.Name()
	if err != nil {
		return nil
	}
	info := &processInfo{PID: p.Pid, Name: name, Status: "running"}
	if user, err := p.Username(); err == nil {
		info.User = user
	}
	if cpuPct, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpuPct
	}
	if memInfo, err := p.MemoryInfo(); err == nil && memInfo != nil {
		info.MemoryMB = float64(memInfo.RSS) / 1024 / 1024
	}
	if cmdline, err := p.Cmdline(); err == nil {
		info.CommandLine = cmdline
	}
	if status, err := p.Status(); err == nil && len(status) > 0 {
		info.Status = status[0]
	}
	return info
}

func sortProcesses(procs []processInfo, sortBy string, desc bool) {
	sort.Slice(procs, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "pid":
			less = procs[i].PID < procs[j].PID
		case "name":
			less = strings.ToLower(procs[i].Name) < strings.ToLower(procs[j].Name)
		case "memory":
			less = procs[i].MemoryMB < procs[j].MemoryMB
		case "cpu":
			fallthrough
		default:
			less = procs[i].CPUPercent < procs[j].CPUPercent
		}
		if desc {
			return !less
		}
		return less
	})
}

func endProcess(env dispatch.Envelope) (any, error) {
	pid := env.GetInt("pid", 0)
	if pid == 0 {
		return nil, fmt.Errorf("pid is required")
	}
	force := env.GetBool("force", false)

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("process %d not found: %w", pid, err)
	}
	name, _ := p.Name()

	if force {
		err = p.Kill()
	} else {
		err = p.Terminate()
	}
	if err != nil {
		return nil, fmt.Errorf("terminate process %d (%s): %w", pid, name, err)
	}

	return map[string]any{"pid": pid, "name": name, "terminated": true, "force": force}, nil
}

type systemSnapshot struct {
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	KernelVersion string  `json:"kernelVersion"`
	Uptime        uint64  `json:"uptimeSeconds"`
	CPUPercent    float64 `json:"cpuPercent"`
	CPUCount      int     `json:"cpuCount"`
	MemoryTotalMB float64 `json:"memoryTotalMb"`
	MemoryUsedMB  float64 `json:"memoryUsedMb"`
	MemoryPercent float64 `json:"memoryPercent"`
	DiskTotalMB   float64 `json:"diskTotalMb"`
	DiskUsedMB    float64 `json:"diskUsedMb"`
	DiskPercent   float64 `json:"diskPercent"`
}

func systemInfo() (any, error) {
	snap := systemSnapshot{}

	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform
		snap.KernelVersion = info.KernelVersion
		snap.Uptime = info.Uptime
	}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if counts, err := cpu.Counts(true); err == nil {
		snap.CPUCount = counts
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryTotalMB = float64(vm.Total) / 1024 / 1024
		snap.MemoryUsedMB = float64(vm.Used) / 1024 / 1024
		snap.MemoryPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage("/"); err == nil {
		snap.DiskTotalMB = float64(usage.Total) / 1024 / 1024
		snap.DiskUsedMB = float64(usage.Used) / 1024 / 1024
		snap.DiskPercent = usage.UsedPercent
	}

	return map[string]any{"type": "system_info", "info": snap}, nil
}
