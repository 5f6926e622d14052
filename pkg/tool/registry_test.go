package tool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

type fakeTool struct {
	name    string
	rules   []tool.Rule
	schema  *jsonschema.Schema
	execute func(ctx context.Context, args tool.Args) *model.Result
}

func (x *fakeTool) Name() string                { return x.name }
func (x *fakeTool) Description() string         { return "fake tool" }
func (x *fakeTool) Schema() *jsonschema.Schema  { return x.schema }
func (x *fakeTool) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules(x.rules, utterance)
}
func (x *fakeTool) Execute(ctx context.Context, args tool.Args) *model.Result {
	if x.execute != nil {
		return x.execute(ctx, args)
	}
	return model.NewResult(x.name, "done")
}

func TestRegisterDuplicateName(t *testing.T) {
	r := tool.NewRegistry()

	first := &fakeTool{name: "calculate"}
	gt.NoError(t, r.Register(first, 0))

	err := r.Register(&fakeTool{name: "calculate"}, 10)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDuplicateTool))
}

func TestResolveFirstMatchWins(t *testing.T) {
	r := tool.NewRegistry()

	generic := &fakeTool{
		name:  "web_search",
		rules: []tool.Rule{tool.PrefixRule{Prefix: "search", ArgKey: "query"}},
	}
	specific := &fakeTool{
		name:  "youtube_search",
		rules: []tool.Rule{tool.PrefixRule{Prefix: "search youtube for", ArgKey: "query"}},
	}

	// Registration order is generic first; the priority table must still
	// route the specific phrase to the specific tool.
	gt.NoError(t, r.Register(generic, 10))
	gt.NoError(t, r.Register(specific, 20))

	resolved, args, ok := r.Resolve("search youtube for lo-fi beats")
	gt.True(t, ok)
	gt.Equal(t, resolved.Name(), "youtube_search")
	gt.Equal(t, args["query"], "lo-fi beats")

	resolved, args, ok = r.Resolve("search golang slices")
	gt.True(t, ok)
	gt.Equal(t, resolved.Name(), "web_search")
	gt.Equal(t, args["query"], "golang slices")
}

func TestResolveIsDeterministicAcrossRuns(t *testing.T) {
	build := func(order []string) *tool.Registry {
		r := tool.NewRegistry()
		tools := map[string]*fakeTool{
			"a": {name: "a", rules: []tool.Rule{tool.PrefixRule{Prefix: "run", ArgKey: "arg"}}},
			"b": {name: "b", rules: []tool.Rule{tool.PrefixRule{Prefix: "run", ArgKey: "arg"}}},
		}
		for _, name := range order {
			prio := 0
			if name == "a" {
				prio = 5
			}
			if err := r.Register(tools[name], prio); err != nil {
				t.Fatal(err)
			}
		}
		return r
	}

	// Same priority table, different registration order: same winner
	for _, order := range [][]string{{"a", "b"}, {"b", "a"}} {
		r := build(order)
		resolved, _, ok := r.Resolve("run something")
		gt.True(t, ok)
		gt.Equal(t, resolved.Name(), "a")
	}
}

func TestResolveConcurrentSessions(t *testing.T) {
	r := tool.NewRegistry()
	gt.NoError(t, r.Register(&fakeTool{
		name:  "web_search",
		rules: []tool.Rule{tool.PrefixRule{Prefix: "search", ArgKey: "query"}},
	}, 10))
	gt.NoError(t, r.Register(&fakeTool{
		name:  "youtube_search",
		rules: []tool.Rule{tool.PrefixRule{Prefix: "search youtube for", ArgKey: "query"}},
	}, 20))

	// Independent sessions share one registry; first use must be safe and
	// consistent from many goroutines at once.
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resolved, _, ok := r.Resolve("search youtube for lo-fi beats")
			if ok {
				results[i] = resolved.Name()
			}
			r.List()
		}(i)
	}
	wg.Wait()

	for _, name := range results {
		gt.Equal(t, name, "youtube_search")
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := tool.NewRegistry()
	gt.NoError(t, r.Register(&fakeTool{
		name:  "calculate",
		rules: []tool.Rule{tool.PrefixRule{Prefix: "calculate", ArgKey: "expression"}},
	}, 0))

	_, _, ok := r.Resolve("tell me a story about rabbits")
	gt.True(t, !ok)
}

func TestInvokeTimeout(t *testing.T) {
	r := tool.NewRegistry(tool.WithTimeout(50 * time.Millisecond))

	cleanedUp := make(chan struct{})
	slow := &fakeTool{
		name: "slow",
		execute: func(ctx context.Context, args tool.Args) *model.Result {
			<-ctx.Done()
			close(cleanedUp)
			return model.NewResult("slow", "too late")
		},
	}
	gt.NoError(t, r.Register(slow, 0))

	start := time.Now()
	result := r.Invoke(context.Background(), slow, tool.Args{})
	gt.True(t, time.Since(start) < time.Second)

	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindTimeout)

	// Cancellation must reach the abandoned tool for cleanup
	select {
	case <-cleanedUp:
	case <-time.After(time.Second):
		t.Fatal("tool did not observe cancellation")
	}
}

func TestInvokeParentCancellationIsNotTimeout(t *testing.T) {
	r := tool.NewRegistry()
	slow := &fakeTool{
		name: "slow",
		execute: func(ctx context.Context, args tool.Args) *model.Result {
			<-ctx.Done()
			return nil
		},
	}
	gt.NoError(t, r.Register(slow, 0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := r.Invoke(ctx, slow, tool.Args{})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindExecution)
	gt.S(t, result.Err.Message).Contains("cancelled")
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	r := tool.NewRegistry()
	calc := &fakeTool{
		name: "calculate",
		schema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"expression": {Type: "string"},
			},
			Required: []string{"expression"},
		},
	}
	gt.NoError(t, r.Register(calc, 0))

	result := r.Invoke(context.Background(), calc, tool.Args{})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindInvalidArgument)
}

func TestInvokeRecoversPanic(t *testing.T) {
	r := tool.NewRegistry()
	bad := &fakeTool{
		name: "bad",
		execute: func(ctx context.Context, args tool.Args) *model.Result {
			panic("boom")
		},
	}
	gt.NoError(t, r.Register(bad, 0))

	result := r.Invoke(context.Background(), bad, tool.Args{})
	gt.True(t, !result.OK())
	gt.Equal(t, result.Err.Kind, model.ErrorKindExecution)
	gt.S(t, result.Err.Message).Contains("boom")
}

func TestListIsPriorityOrdered(t *testing.T) {
	r := tool.NewRegistry()
	gt.NoError(t, r.Register(&fakeTool{name: "low"}, 1))
	gt.NoError(t, r.Register(&fakeTool{name: "high"}, 100))
	gt.NoError(t, r.Register(&fakeTool{name: "mid"}, 50))

	infos := r.List()
	gt.A(t, infos).Length(3)
	gt.Equal(t, infos[0].Name, "high")
	gt.Equal(t, infos[1].Name, "mid")
	gt.Equal(t, infos[2].Name, "low")
}
