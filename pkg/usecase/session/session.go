package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/warren/pkg/adapter"
	"github.com/m-mizutani/warren/pkg/memory"
	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
	"github.com/m-mizutani/warren/pkg/utils/logging"
)

// State is the router's position in the per-utterance state machine:
// Idle -> Matching -> {ToolExecuting, GenerativeFallback} -> Responding -> Idle.
type State int32

const (
	StateIdle State = iota
	StateMatching
	StateToolExecuting
	StateGenerativeFallback
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateToolExecuting:
		return "tool_executing"
	case StateGenerativeFallback:
		return "generative_fallback"
	case StateResponding:
		return "responding"
	default:
		return "unknown"
	}
}

// Response is what one submitted utterance produces.
type Response struct {
	Text    string
	Tools   []string // tools invoked, in order
	Warning string   // degraded-mode notice, empty when fully ranked
}

// Session is the intent router for one conversation. Utterances are
// processed strictly sequentially per session so the memory store's append
// order matches arrival order; independent sessions run concurrently against
// the same shared registry and store.
type Session struct {
	id        string
	registry  *tool.Registry
	store     *memory.Store
	llm       adapter.Gemini
	assembler *Assembler

	recentWindow    int
	memoryTopK      int
	maxTokens       int32
	wrapToolResults bool

	mu    sync.Mutex
	state atomic.Int32
}

// NewInput contains parameters for creating a session.
type NewInput struct {
	ID       string
	Registry *tool.Registry
	Store    *memory.Store
	LLM      adapter.Gemini

	// ContextBudget bounds the assembled prompt in characters; 0 uses the
	// default.
	ContextBudget int

	// RecentWindow is how many recent turns feed the assembler (default 10).
	RecentWindow int

	// MemoryTopK is how many memory matches feed the assembler (default 5).
	MemoryTopK int

	// MaxTokens bounds the generative response (default 512).
	MaxTokens int32

	// WrapToolResults asks the LLM to phrase successful tool payloads
	// conversationally. Off keeps tool output deterministic.
	WrapToolResults bool
}

func New(input NewInput) (*Session, error) {
	if input.Registry == nil {
		return nil, goerr.New("tool registry is required")
	}
	if input.Store == nil {
		return nil, goerr.New("memory store is required")
	}
	if input.LLM == nil {
		return nil, goerr.New("LLM adapter is required")
	}

	s := &Session{
		id:              input.ID,
		registry:        input.Registry,
		store:           input.Store,
		llm:             input.LLM,
		assembler:       NewAssembler(input.ContextBudget),
		recentWindow:    input.RecentWindow,
		memoryTopK:      input.MemoryTopK,
		maxTokens:       input.MaxTokens,
		wrapToolResults: input.WrapToolResults,
	}
	if s.recentWindow <= 0 {
		s.recentWindow = 10
	}
	if s.memoryTopK <= 0 {
		s.memoryTopK = 5
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 512
	}
	return s, nil
}

// State reports the router's current state. Safe for concurrent use.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Submit processes one utterance end to end: match, execute or fall back,
// respond, append. Tool failures become user-visible messages, never an
// error return; only losing the turn itself is a hard failure.
func (s *Session) Submit(ctx context.Context, utterance string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.setState(StateIdle)

	logger := logging.From(ctx)
	s.setState(StateMatching)

	resp := &Response{}
	var toolResult *model.Result

	if matched, args, ok := s.registry.Resolve(utterance); ok {
		s.setState(StateToolExecuting)
		logger.Info("tool matched", "session", s.id, "tool", matched.Name())

		toolResult = s.registry.Invoke(ctx, matched, args)
		resp.Tools = append(resp.Tools, matched.Name())
		resp.Text = toolResult.Render()

		if toolResult.OK() && s.wrapToolResults {
			resp.Text = s.wrapResult(ctx, utterance, toolResult)
		}
	} else {
		s.setState(StateGenerativeFallback)
		text, warning := s.generate(ctx, utterance)
		resp.Text = text
		resp.Warning = warning
	}

	s.setState(StateResponding)

	turn := &model.Turn{
		UserText:  utterance,
		AgentText: resp.Text,
		Tools:     resp.Tools,
	}
	if err := s.store.Append(ctx, turn); err != nil {
		if errors.Is(err, model.ErrEmbeddingUnavailable) {
			logger.Warn("turn stored without embedding", "session", s.id, "turn_id", turn.ID)
			if resp.Warning == "" {
				resp.Warning = "memory indexing degraded: embedding backend unavailable"
			}
		} else {
			return nil, goerr.Wrap(err, "failed to append turn", goerr.V("session", s.id))
		}
	}

	return resp, nil
}

// generate runs the fallback path: gather context, assemble a bounded
// prompt, call the inference engine.
func (s *Session) generate(ctx context.Context, utterance string) (text, warning string) {
	logger := logging.From(ctx)

	recent, err := s.store.Recent(ctx, s.recentWindow)
	if err != nil {
		logger.Warn("failed to load recent turns", "session", s.id, "error", err)
	}

	var matches []memory.Match
	if result, err := s.store.Search(ctx, utterance, s.memoryTopK); err != nil {
		logger.Warn("memory search failed", "session", s.id, "error", err)
	} else {
		matches = result.Matches
		if result.Degraded {
			warning = result.Warning
		}
	}

	prompt := s.assembler.Build(ContextInput{
		Utterance: utterance,
		Recent:    recent,
		Matches:   matches,
	})

	generated, err := s.llm.Generate(ctx, adapter.GenerateInput{
		Prompt:    prompt,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		logger.Error("inference failed", "session", s.id, "error", err)
		return fmt.Sprintf("Sorry, I could not generate a response: %v", err), warning
	}
	return generated, warning
}

// wrapResult asks the LLM for a conversational phrasing of a successful tool
// payload. Inference failure here is a degradation, not an error: the raw
// payload is returned unchanged.
func (s *Session) wrapResult(ctx context.Context, utterance string, result *model.Result) string {
	prompt := s.assembler.Build(ContextInput{
		Utterance:  utterance,
		ToolResult: result,
	})

	wrapped, err := s.llm.Generate(ctx, adapter.GenerateInput{
		Prompt:    prompt,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		logging.From(ctx).Warn("tool result wrapping failed, returning raw payload",
			"session", s.id, "tool", result.Tool, "error", err)
		return result.Payload
	}
	return wrapped
}
