package cli_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/cli"
)

func TestRunToolsCommand(t *testing.T) {
	err := cli.Run(context.Background(), []string{"warren", "tools"})
	gt.True(t, err == nil)
}

func TestRunUnknownCommand(t *testing.T) {
	err := cli.Run(context.Background(), []string{"warren", "no-such-command"})
	gt.True(t, err != nil)
	gt.Equal(t, err.Code, 1)
}

func TestRunAskRequiresUtterance(t *testing.T) {
	err := cli.Run(context.Background(), []string{"warren", "ask"})
	gt.True(t, err != nil)
}
