package system

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

func emptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

// SystemInfo reports host OS, uptime and hardware summary.
type SystemInfo struct{}

func NewSystemInfo() *SystemInfo { return &SystemInfo{} }

func (x *SystemInfo) Name() string { return "system_info" }

func (x *SystemInfo) Description() string {
	return "Host summary: 'system info'"
}

func (x *SystemInfo) Schema() *jsonschema.Schema { return emptySchema() }

func (x *SystemInfo) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "system info", AllowEmpty: true},
		tool.PrefixRule{Prefix: "system status", AllowEmpty: true},
	}, utterance)
}

func (x *SystemInfo) Execute(ctx context.Context, args tool.Args) *model.Result {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read host info"))
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read memory info"))
	}

	counts, _ := cpu.CountsWithContext(ctx, true)
	uptime := time.Duration(info.Uptime) * time.Second

	return model.NewResult(x.Name(), fmt.Sprintf(
		"Host: %s\nOS: %s %s (%s)\nUptime: %s\nCPUs: %d\nMemory: %s / %s (%.1f%% used)",
		info.Hostname, info.Platform, info.PlatformVersion, info.KernelArch,
		uptime.Round(time.Minute), counts,
		formatBytes(vm.Used), formatBytes(vm.Total), vm.UsedPercent))
}

// CPUUsage reports the current CPU utilization sampled over one second.
type CPUUsage struct{}

func NewCPUUsage() *CPUUsage { return &CPUUsage{} }

func (x *CPUUsage) Name() string { return "cpu_usage" }

func (x *CPUUsage) Description() string {
	return "CPU utilization: 'cpu usage'"
}

func (x *CPUUsage) Schema() *jsonschema.Schema { return emptySchema() }

func (x *CPUUsage) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "cpu usage", AllowEmpty: true},
		tool.PrefixRule{Prefix: "cpu", AllowEmpty: true},
	}, utterance)
}

func (x *CPUUsage) Execute(ctx context.Context, args tool.Args) *model.Result {
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil || len(percents) == 0 {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to sample CPU usage"))
	}
	return model.NewResult(x.Name(), fmt.Sprintf("CPU usage: %.1f%%", percents[0]))
}

// MemoryUsage reports virtual memory utilization.
type MemoryUsage struct{}

func NewMemoryUsage() *MemoryUsage { return &MemoryUsage{} }

func (x *MemoryUsage) Name() string { return "memory_usage" }

func (x *MemoryUsage) Description() string {
	return "Memory utilization: 'memory usage'"
}

func (x *MemoryUsage) Schema() *jsonschema.Schema { return emptySchema() }

func (x *MemoryUsage) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "memory usage", AllowEmpty: true},
		tool.PrefixRule{Prefix: "ram usage", AllowEmpty: true},
	}, utterance)
}

func (x *MemoryUsage) Execute(ctx context.Context, args tool.Args) *model.Result {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read memory info"))
	}
	return model.NewResult(x.Name(), fmt.Sprintf(
		"Memory: %s used of %s (%.1f%%), %s available",
		formatBytes(vm.Used), formatBytes(vm.Total), vm.UsedPercent, formatBytes(vm.Available)))
}

// DiskUsage reports usage of the root filesystem.
type DiskUsage struct {
	path string
}

func NewDiskUsage(path string) *DiskUsage {
	if path == "" {
		path = "/"
	}
	return &DiskUsage{path: path}
}

func (x *DiskUsage) Name() string { return "disk_usage" }

func (x *DiskUsage) Description() string {
	return "Disk utilization: 'disk usage'"
}

func (x *DiskUsage) Schema() *jsonschema.Schema { return emptySchema() }

func (x *DiskUsage) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "disk usage", AllowEmpty: true},
		tool.PrefixRule{Prefix: "disk space", AllowEmpty: true},
	}, utterance)
}

func (x *DiskUsage) Execute(ctx context.Context, args tool.Args) *model.Result {
	usage, err := disk.UsageWithContext(ctx, x.path)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to read disk usage", goerr.V("path", x.path)))
	}
	return model.NewResult(x.Name(), fmt.Sprintf(
		"Disk %s: %s used of %s (%.1f%%), %s free",
		x.path, formatBytes(usage.Used), formatBytes(usage.Total),
		usage.UsedPercent, formatBytes(usage.Free)))
}

// ListProcesses reports the top processes, ordered by CPU unless the
// utterance asks for memory.
type ListProcesses struct {
	limit int
}

func NewListProcesses() *ListProcesses { return &ListProcesses{limit: 10} }

func (x *ListProcesses) Name() string { return "list_processes" }

func (x *ListProcesses) Description() string {
	return "Top processes: 'list processes' or 'list processes by memory'"
}

func (x *ListProcesses) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"sort": {Type: "string", Description: "Sort order: cpu (default) or memory"},
		},
	}
}

func (x *ListProcesses) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "list processes", ArgKey: "sort", AllowEmpty: true},
		tool.PrefixRule{Prefix: "show processes", ArgKey: "sort", AllowEmpty: true},
	}, utterance)
}

// sortOrder normalizes the optional sort argument. "by memory", "memory"
// and "mem" all select memory; anything empty or cpu-ish selects CPU.
func sortOrder(raw string) (string, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "by "))
	switch s {
	case "", "cpu":
		return "cpu", nil
	case "memory", "mem", "ram":
		return "memory", nil
	}
	return "", goerr.New("unknown sort order, use cpu or memory", goerr.V("sort", raw))
}

type processLine struct {
	pid    int32
	name   string
	rss    uint64
	cpuPct float64
}

func (x *ListProcesses) Execute(ctx context.Context, args tool.Args) *model.Result {
	order, err := sortOrder(args["sort"])
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument, err)
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.Wrap(err, "failed to list processes"))
	}

	var lines []processLine
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		var rss uint64
		if info, err := p.MemoryInfoWithContext(ctx); err == nil && info != nil {
			rss = info.RSS
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		lines = append(lines, processLine{pid: p.Pid, name: name, rss: rss, cpuPct: cpuPct})
	}

	sort.Slice(lines, func(i, j int) bool {
		if order == "memory" {
			return lines[i].rss > lines[j].rss
		}
		return lines[i].cpuPct > lines[j].cpuPct
	})
	if len(lines) > x.limit {
		lines = lines[:x.limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d processes by %s:\n", len(lines), order)
	for _, l := range lines {
		fmt.Fprintf(&b, "%7d  %-24s %10s  %5.1f%% cpu\n",
			l.pid, l.name, formatBytes(l.rss), l.cpuPct)
	}
	return model.NewResult(x.Name(), strings.TrimRight(b.String(), "\n"))
}

// KillProcess terminates a process by PID or name. Termination is attempted
// gracefully first, then forced.
type KillProcess struct{}

func NewKillProcess() *KillProcess { return &KillProcess{} }

func (x *KillProcess) Name() string { return "kill_process" }

func (x *KillProcess) Description() string {
	return "Terminate a process: 'kill process 1234' or 'kill process firefox'"
}

func (x *KillProcess) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"target": {Type: "string", Description: "PID or process name"},
		},
		Required: []string{"target"},
	}
}

func (x *KillProcess) Match(utterance string) (tool.Args, bool) {
	return tool.PrefixRule{Prefix: "kill process", ArgKey: "target"}.Match(utterance)
}

func (x *KillProcess) Execute(ctx context.Context, args tool.Args) *model.Result {
	target := args["target"]

	var victims []*process.Process
	if pid, err := strconv.ParseInt(target, 10, 32); err == nil {
		p, err := process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
				goerr.Wrap(err, "no process with given PID", goerr.V("pid", pid)))
		}
		victims = append(victims, p)
	} else {
		procs, err := process.ProcessesWithContext(ctx)
		if err != nil {
			return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
				goerr.Wrap(err, "failed to list processes"))
		}
		for _, p := range procs {
			name, err := p.NameWithContext(ctx)
			if err == nil && strings.EqualFold(name, target) {
				victims = append(victims, p)
			}
		}
		if len(victims) == 0 {
			return model.NewErrorResult(x.Name(), model.ErrorKindNotFound,
				goerr.New("no process with given name", goerr.V("name", target)))
		}
	}

	killed := 0
	for _, p := range victims {
		if err := p.TerminateWithContext(ctx); err != nil {
			if err := p.KillWithContext(ctx); err != nil {
				continue
			}
		}
		killed++
	}
	if killed == 0 {
		return model.NewErrorResult(x.Name(), model.ErrorKindExecution,
			goerr.New("failed to terminate process", goerr.V("target", target)))
	}

	result := model.NewResult(x.Name(), fmt.Sprintf("Terminated %d process(es) matching %q", killed, target))
	result.SideEffects = true
	return result
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
