package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/repository"
	"github.com/m-mizutani/warren/pkg/utils/logging"
)

// Embedder is the embedding backend boundary. The same backend must be used
// for stored turns and queries so the vectors are comparable.
type Embedder interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// Match is one ranked search hit.
type Match struct {
	Turn       *model.Turn
	Similarity float64
}

// SearchResult carries either a fully ranked match set or a degraded one.
// Callers must check Degraded before treating Matches as similarity-ranked:
// when the embedding backend is down the matches come from keyword overlap.
type SearchResult struct {
	Matches  []Match
	Degraded bool
	Warning  string
}

// Store is the append-only conversation log with embedding-indexed lookup.
// Appends are serialized through a single writer lock; reads go straight to
// the repository and are safe for concurrent use.
type Store struct {
	repo     repository.Repository
	embedder Embedder

	maxTurns      int
	minSimilarity float64

	writeMu chan struct{}
}

type Option func(*Store)

// WithMaxTurns caps the retained history. Once exceeded, the oldest turns are
// pruned after append. 0 disables pruning.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		s.maxTurns = n
	}
}

// WithMinSimilarity sets the similarity floor for Search results.
func WithMinSimilarity(f float64) Option {
	return func(s *Store) {
		s.minSimilarity = f
	}
}

func New(repo repository.Repository, embedder Embedder, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		embedder: embedder,
		maxTurns: 500,
		writeMu:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append computes the embedding for the turn and persists it. When the
// embedding backend is unreachable the turn is persisted with a null
// embedding marker and ErrEmbeddingUnavailable is returned: semantic search
// degrades, conversation history is never lost.
func (s *Store) Append(ctx context.Context, turn *model.Turn) error {
	select {
	case s.writeMu <- struct{}{}:
		defer func() { <-s.writeMu }()
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "append cancelled")
	}

	if turn.ID == "" {
		turn.ID = model.NewTurnID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	vec, embedErr := s.embedder.Embedding(ctx, turn.EmbeddingText())
	if embedErr != nil {
		turn.Embedding = nil
		logging.From(ctx).Warn("embedding backend unavailable, persisting turn without vector",
			"turn_id", turn.ID, "error", embedErr)
	} else {
		turn.Embedding = vec
	}

	if err := s.repo.PutTurn(ctx, turn); err != nil {
		return goerr.Wrap(err, "failed to persist turn", goerr.V("turn_id", turn.ID))
	}

	if err := s.prune(ctx); err != nil {
		logging.From(ctx).Warn("failed to prune old turns", "error", err)
	}

	if embedErr != nil {
		return goerr.Wrap(model.ErrEmbeddingUnavailable, "turn persisted without embedding",
			goerr.V("turn_id", turn.ID))
	}
	return nil
}

func (s *Store) prune(ctx context.Context) error {
	if s.maxTurns <= 0 {
		return nil
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return err
	}
	if excess := int(stats.Count) - s.maxTurns; excess > 0 {
		return s.repo.DeleteOldestTurns(ctx, excess)
	}
	return nil
}

// Search embeds the query and returns up to topK turns ranked by descending
// cosine similarity, ties broken by recency. When the embedding backend is
// down it falls back to keyword overlap and marks the result degraded.
func (s *Store) Search(ctx context.Context, query string, topK int) (*SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	turns, err := s.repo.ListTurns(ctx, 0, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load turns for search")
	}

	qvec, err := s.embedder.Embedding(ctx, query)
	if err != nil {
		logging.From(ctx).Warn("embedding backend unavailable, using keyword fallback", "error", err)
		return &SearchResult{
			Matches:  keywordMatches(turns, query, topK),
			Degraded: true,
			Warning:  "semantic search unavailable, results ranked by keyword overlap",
		}, nil
	}

	var matches []Match
	for _, turn := range turns {
		if !turn.HasEmbedding() {
			continue
		}
		sim := cosineSimilarity(qvec, turn.Embedding)
		if s.minSimilarity > 0 && sim < s.minSimilarity {
			continue
		}
		matches = append(matches, Match{Turn: turn, Similarity: sim})
	}

	rankMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return &SearchResult{Matches: matches}, nil
}

// Range returns all turns with timestamp in [start, end), chronological.
func (s *Store) Range(ctx context.Context, start, end time.Time) ([]*model.Turn, error) {
	return s.repo.ListTurnsByRange(ctx, start, end)
}

// Recent returns the newest n turns in chronological order.
func (s *Store) Recent(ctx context.Context, n int) ([]*model.Turn, error) {
	return s.repo.RecentTurns(ctx, n)
}

// Stats returns the total turn count and timestamp range.
func (s *Store) Stats(ctx context.Context) (*repository.TurnStats, error) {
	return s.repo.Stats(ctx)
}

// Clear wipes the conversation history. This is the only deletion path
// besides retention pruning.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.DeleteAllTurns(ctx)
}

// rankMatches orders by similarity descending; equal similarity prefers the
// more recent turn.
func rankMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Turn.CreatedAt.After(matches[j].Turn.CreatedAt)
	})
}

func keywordMatches(turns []*model.Turn, query string, topK int) []Match {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	var matches []Match
	for _, turn := range turns {
		text := strings.ToLower(turn.UserText + " " + turn.AgentText)
		var hits int
		for _, w := range words {
			if strings.Contains(text, w) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		matches = append(matches, Match{
			Turn:       turn,
			Similarity: float64(hits) / float64(len(words)),
		})
	}

	rankMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
