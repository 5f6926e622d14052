package system_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool/system"
)

func TestMonitorMatch(t *testing.T) {
	_, ok := system.NewSystemInfo().Match("system info")
	gt.True(t, ok)

	_, ok = system.NewCPUUsage().Match("cpu usage")
	gt.True(t, ok)

	_, ok = system.NewMemoryUsage().Match("memory usage")
	gt.True(t, ok)

	_, ok = system.NewDiskUsage("/").Match("disk usage")
	gt.True(t, ok)

	_, ok = system.NewListProcesses().Match("list processes")
	gt.True(t, ok)

	args, ok := system.NewKillProcess().Match("kill process 1234")
	gt.True(t, ok)
	gt.Equal(t, args["target"], "1234")

	// Bare "kill process" needs a target
	_, ok = system.NewKillProcess().Match("kill process")
	gt.True(t, !ok)
}

func TestListProcessesSortOrder(t *testing.T) {
	ctx := context.Background()
	lp := system.NewListProcesses()

	// Default is CPU
	args, ok := lp.Match("list processes")
	gt.True(t, ok)
	result := lp.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("by cpu")

	// Memory is opt-in through the utterance
	args, ok = lp.Match("list processes by memory")
	gt.True(t, ok)
	gt.Equal(t, args["sort"], "by memory")
	result = lp.Execute(ctx, args)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("by memory")

	// Anything else is rejected
	result = lp.Execute(ctx, map[string]string{"sort": "uptime"})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
}

func TestMemoryUsageExecute(t *testing.T) {
	ctx := context.Background()

	result := system.NewMemoryUsage().Execute(ctx, nil)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("Memory:")
}

func TestDiskUsageExecute(t *testing.T) {
	ctx := context.Background()

	result := system.NewDiskUsage("/").Execute(ctx, nil)
	gt.True(t, result.OK())
	gt.S(t, result.Payload).Contains("Disk /:")
}
