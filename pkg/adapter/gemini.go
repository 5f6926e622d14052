package adapter

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GenerateInput carries one inference request across the LLM boundary.
type GenerateInput struct {
	Prompt    string
	MaxTokens int32
	Stop      []string
}

// Gemini is the boundary to the language model and the embedding backend.
// The orchestration core treats both calls as black boxes with a timeout.
type Gemini interface {
	Generate(ctx context.Context, input GenerateInput) (string, error)
	Embedding(ctx context.Context, text string) ([]float32, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	embeddingModel  string
	dimensions      int32
	timeout         time.Duration
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithDimensions sets the embedding output dimensionality. The same value
// must be used for storage and query vectors.
func WithDimensions(d int32) GeminiOption {
	return func(g *GeminiClient) {
		g.dimensions = d
	}
}

// WithTimeout bounds each Generate/Embedding call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiClient) {
		g.timeout = d
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		dimensions:      768,
		timeout:         60 * time.Second,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) Generate(ctx context.Context, input GenerateInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if input.MaxTokens > 0 {
		config.MaxOutputTokens = input.MaxTokens
	}
	if len(input.Stop) > 0 {
		config.StopSequences = input.Stop
	}

	contents := []*genai.Content{
		genai.NewContentFromText(input.Prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}

	text := resp.Text()
	if text == "" {
		return "", goerr.New("no text in generate response")
	}
	return text, nil
}

func (g *GeminiClient) Embedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	dims := g.dimensions
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("no embedding in response")
	}
	return resp.Embeddings[0].Values, nil
}
