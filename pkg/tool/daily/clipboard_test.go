package daily_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/tool/daily"
)

func TestClipboardMatch(t *testing.T) {
	cb := daily.NewClipboard()

	args, ok := cb.Match("copy hello world")
	gt.True(t, ok)
	gt.Equal(t, args["action"], "copy")
	gt.Equal(t, args["text"], "hello world")

	args, ok = cb.Match("copy to clipboard secret token")
	gt.True(t, ok)
	gt.Equal(t, args["text"], "secret token")

	args, ok = cb.Match("paste")
	gt.True(t, ok)
	gt.Equal(t, args["action"], "paste")

	args, ok = cb.Match("clear clipboard")
	gt.True(t, ok)
	gt.Equal(t, args["action"], "clear")

	args, ok = cb.Match("clipboard history")
	gt.True(t, ok)
	gt.Equal(t, args["action"], "history")

	// Bare "copy" has nothing to copy
	_, ok = cb.Match("copy")
	gt.True(t, !ok)
}
