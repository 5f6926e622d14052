package tool

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/m-mizutani/warren/pkg/model"
)

// Args is the argument bundle a matcher extracts from an utterance. Values
// are raw utterance fragments; tools parse them further as needed.
type Args map[string]string

// Tool is a self-contained capability: a name, a deterministic matcher, and
// an executor. Execute must not panic across the contract boundary and must
// translate every failure into a Result with a stable ErrorKind. Tools that
// mutate external state must fully attempt or fully report the mutation.
type Tool interface {
	// Name returns the globally unique tool name.
	Name() string

	// Description returns a one-line summary shown in the tool table.
	Description() string

	// Schema returns the argument schema for this tool.
	Schema() *jsonschema.Schema

	// Match reports whether the utterance addresses this tool, extracting the
	// argument bundle on success.
	Match(utterance string) (Args, bool)

	// Execute runs the tool. Implementations must honor ctx cancellation for
	// best-effort cleanup when the registry abandons a timed-out invocation.
	Execute(ctx context.Context, args Args) *model.Result
}

// SlowTool lets long-running tools (network fetch, download) extend the
// registry's default invocation timeout.
type SlowTool interface {
	Timeout() time.Duration
}
