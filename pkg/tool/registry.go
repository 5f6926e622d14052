package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/utils/logging"
)

// DefaultTimeout bounds a tool invocation unless the tool declares a longer
// one via SlowTool.
const DefaultTimeout = 15 * time.Second

type entry struct {
	tool     Tool
	priority int
	order    int
}

// Registry holds the fixed tool set built at startup. Resolution iterates
// tools by descending priority (registration order breaks ties) and returns
// the first match; this first-match-wins policy is deliberate and must stay
// deterministic. Register keeps the table sorted, so Resolve/List/Lookup
// never mutate state and are safe for concurrent use across sessions.
type Registry struct {
	entries   []*entry
	byName    map[string]*entry
	timeout   time.Duration
	nextOrder int
}

type RegistryOption func(*Registry)

// WithTimeout overrides the default per-tool invocation timeout.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName:  make(map[string]*entry),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool at the given priority. A duplicate name is a
// startup-fatal error.
func (r *Registry) Register(t Tool, priority int) error {
	if _, ok := r.byName[t.Name()]; ok {
		return goerr.Wrap(model.ErrDuplicateTool, "tool already registered", goerr.V("name", t.Name()))
	}

	e := &entry{tool: t, priority: priority, order: r.nextOrder}
	r.nextOrder++
	r.entries = append(r.entries, e)
	r.byName[t.Name()] = e

	// Re-sort on the write path so every read path sees a stable table
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].priority != r.entries[j].priority {
			return r.entries[i].priority > r.entries[j].priority
		}
		return r.entries[i].order < r.entries[j].order
	})
	return nil
}

// Resolve matches the utterance against the priority table and returns the
// first matching tool with its argument bundle.
func (r *Registry) Resolve(utterance string) (Tool, Args, bool) {
	for _, e := range r.entries {
		if args, ok := e.tool.Match(utterance); ok {
			return e.tool, args, true
		}
	}
	return nil, nil, false
}

// Lookup returns a tool by exact name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// Info describes one row of the effective priority table.
type Info struct {
	Name        string
	Description string
	Priority    int
}

// List returns the priority table in resolution order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, Info{
			Name:        e.tool.Name(),
			Description: e.tool.Description(),
			Priority:    e.priority,
		})
	}
	return infos
}

// Invoke executes the tool under the per-tool timeout. A timed-out
// invocation is abandoned with ErrorKindTimeout; the context cancellation
// signals the tool to clean up whatever it started. Panics never cross the
// contract boundary.
func (r *Registry) Invoke(ctx context.Context, t Tool, args Args) *model.Result {
	if err := validateArgs(t, args); err != nil {
		return model.NewErrorResult(t.Name(), model.ErrorKindInvalidArgument, err)
	}

	timeout := r.timeout
	if st, ok := t.(SlowTool); ok && st.Timeout() > timeout {
		timeout = st.Timeout()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *model.Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logging.From(ctx).Error("tool panicked", "tool", t.Name(), "panic", rec)
				done <- model.NewErrorResult(t.Name(), model.ErrorKindExecution,
					fmt.Errorf("tool panicked: %v", rec))
			}
		}()
		done <- t.Execute(ctx, args)
	}()

	select {
	case result := <-done:
		if result == nil {
			return model.NewErrorResult(t.Name(), model.ErrorKindExecution,
				goerr.New("tool returned no result", goerr.V("tool", t.Name())))
		}
		return result
	case <-ctx.Done():
		// A cancelled parent (user interrupt, shutdown) is not a timeout
		if errors.Is(ctx.Err(), context.Canceled) {
			logging.From(ctx).Warn("tool invocation cancelled", "tool", t.Name())
			return model.NewErrorResult(t.Name(), model.ErrorKindExecution,
				goerr.New("tool invocation cancelled", goerr.V("tool", t.Name())))
		}
		logging.From(ctx).Warn("tool invocation timed out", "tool", t.Name(), "timeout", timeout)
		return model.NewErrorResult(t.Name(), model.ErrorKindTimeout,
			goerr.New("tool execution exceeded timeout", goerr.V("tool", t.Name()), goerr.V("timeout", timeout)))
	}
}

// validateArgs checks the bundle against the tool's argument schema. Only
// required-property presence is enforced here; tools do their own value
// parsing.
func validateArgs(t Tool, args Args) error {
	schema := t.Schema()
	if schema == nil {
		return nil
	}
	for _, key := range schema.Required {
		if v, ok := args[key]; !ok || v == "" {
			return goerr.New("missing required argument",
				goerr.V("tool", t.Name()), goerr.V("argument", key))
		}
	}
	return nil
}
