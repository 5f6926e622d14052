package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/warren/pkg/adapter"
	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/tool"
	"github.com/m-mizutani/warren/pkg/usecase/session"
)

type mockLLM struct {
	generateFunc func(ctx context.Context, input adapter.GenerateInput) (string, error)
	embedFunc    func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockLLM) Generate(ctx context.Context, input adapter.GenerateInput) (string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, input)
	}
	return "generated response", nil
}

func (m *mockLLM) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

type echoTool struct {
	name    string
	prefix  string
	execute func(ctx context.Context, args tool.Args) *model.Result
}

func (x *echoTool) Name() string               { return x.name }
func (x *echoTool) Description() string        { return "test tool" }
func (x *echoTool) Schema() *jsonschema.Schema { return nil }
func (x *echoTool) Match(utterance string) (tool.Args, bool) {
	return tool.PrefixRule{Prefix: x.prefix, ArgKey: "arg"}.Match(utterance)
}
func (x *echoTool) Execute(ctx context.Context, args tool.Args) *model.Result {
	if x.execute != nil {
		return x.execute(ctx, args)
	}
	return model.NewResult(x.name, "echo: "+args["arg"])
}

func newTestSession(t *testing.T, llm *mockLLM, registry *tool.Registry) (*session.Session, *memory.Store) {
	t.Helper()
	if llm == nil {
		llm = &mockLLM{}
	}
	if registry == nil {
		registry = tool.NewRegistry()
	}
	store := memory.New(repository.NewInMemory(), llm)
	s, err := session.New(session.NewInput{
		ID:       "test-session",
		Registry: registry,
		Store:    store,
		LLM:      llm,
	})
	gt.NoError(t, err)
	return s, store
}

func TestSubmitToolPath(t *testing.T) {
	ctx := context.Background()
	registry := tool.NewRegistry()
	gt.NoError(t, registry.Register(&echoTool{name: "calculate", prefix: "calculate"}, 10))

	s, store := newTestSession(t, nil, registry)

	resp, err := s.Submit(ctx, "calculate 2+2")
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "echo: 2+2")
	gt.Equal(t, resp.Tools, []string{"calculate"})

	// The turn summary persists with the tool name
	turns, err := store.Recent(ctx, 1)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)
	gt.Equal(t, turns[0].UserText, "calculate 2+2")
	gt.Equal(t, turns[0].AgentText, "echo: 2+2")
	gt.Equal(t, turns[0].Tools, []string{"calculate"})
	gt.Equal(t, s.State(), session.StateIdle)
}

func TestSubmitGenerativeFallback(t *testing.T) {
	ctx := context.Background()

	var seenPrompt string
	llm := &mockLLM{
		generateFunc: func(ctx context.Context, input adapter.GenerateInput) (string, error) {
			seenPrompt = input.Prompt
			return "a story about rabbits", nil
		},
	}
	s, store := newTestSession(t, llm, nil)

	resp, err := s.Submit(ctx, "tell me a story")
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "a story about rabbits")
	gt.A(t, resp.Tools).Length(0)
	gt.S(t, seenPrompt).Contains("tell me a story")

	turns, err := store.Recent(ctx, 1)
	gt.NoError(t, err)
	gt.Equal(t, turns[0].AgentText, "a story about rabbits")
}

func TestSubmitToolErrorIsRendered(t *testing.T) {
	ctx := context.Background()
	registry := tool.NewRegistry()
	failing := &echoTool{
		name:   "read_file",
		prefix: "read file",
		execute: func(ctx context.Context, args tool.Args) *model.Result {
			return model.NewErrorResult("read_file", model.ErrorKindExecution,
				errors.New("no such file: notes.txt"))
		},
	}
	gt.NoError(t, registry.Register(failing, 10))

	s, _ := newTestSession(t, nil, registry)

	resp, err := s.Submit(ctx, "read file notes.txt")
	gt.NoError(t, err)
	gt.S(t, resp.Text).Contains("read_file")
	gt.S(t, resp.Text).Contains("no such file: notes.txt")
}

func TestSubmitToolTimeoutStillResponds(t *testing.T) {
	ctx := context.Background()
	registry := tool.NewRegistry(tool.WithTimeout(50 * time.Millisecond))
	stuck := &echoTool{
		name:   "download_file",
		prefix: "download",
		execute: func(ctx context.Context, args tool.Args) *model.Result {
			<-ctx.Done()
			return nil
		},
	}
	gt.NoError(t, registry.Register(stuck, 10))

	s, store := newTestSession(t, nil, registry)

	start := time.Now()
	resp, err := s.Submit(ctx, "download https://example.com/big.iso")
	gt.NoError(t, err)
	gt.True(t, time.Since(start) < time.Second)
	gt.S(t, resp.Text).Contains("timeout")
	gt.Equal(t, s.State(), session.StateIdle)

	// The timed-out turn is still recorded
	turns, err := store.Recent(ctx, 1)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)
}

func TestSubmitSequentialOrdering(t *testing.T) {
	ctx := context.Background()
	s, store := newTestSession(t, nil, nil)

	inputs := []string{"one", "two", "three", "four"}
	for _, input := range inputs {
		_, err := s.Submit(ctx, input)
		gt.NoError(t, err)
	}

	turns, err := store.Recent(ctx, 10)
	gt.NoError(t, err)
	gt.A(t, turns).Length(len(inputs))
	for i, input := range inputs {
		gt.Equal(t, turns[i].UserText, input)
	}
}

func TestSubmitDegradedEmbeddingStillResponds(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding backend down")
		},
	}
	s, store := newTestSession(t, llm, nil)

	resp, err := s.Submit(ctx, "hello there")
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "generated response")
	gt.S(t, resp.Warning).Contains("keyword")

	// History survives without the vector
	turns, err := store.Recent(ctx, 1)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)
	gt.True(t, !turns[0].HasEmbedding())
}

func TestSubmitInferenceFailureSurfacedAsMessage(t *testing.T) {
	ctx := context.Background()
	llm := &mockLLM{
		generateFunc: func(ctx context.Context, input adapter.GenerateInput) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	s, _ := newTestSession(t, llm, nil)

	resp, err := s.Submit(ctx, "how are you?")
	gt.NoError(t, err)
	gt.S(t, resp.Text).Contains("model overloaded")
}

func TestWrapToolResultFallsBackToRawPayload(t *testing.T) {
	ctx := context.Background()
	registry := tool.NewRegistry()
	gt.NoError(t, registry.Register(&echoTool{name: "weather", prefix: "weather"}, 10))

	llm := &mockLLM{
		generateFunc: func(ctx context.Context, input adapter.GenerateInput) (string, error) {
			return "", errors.New("inference down")
		},
	}
	store := memory.New(repository.NewInMemory(), llm)
	s, err := session.New(session.NewInput{
		ID:              "wrap-test",
		Registry:        registry,
		Store:           store,
		LLM:             llm,
		WrapToolResults: true,
	})
	gt.NoError(t, err)

	resp, err := s.Submit(ctx, "weather London")
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "echo: London")
}
