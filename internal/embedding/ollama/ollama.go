// Package ollama embeds text with a local Ollama model through langchaingo.
package ollama

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

type Config struct {
	BaseURL string
	Model   string
}

// Embedder wraps a langchaingo embedder backed by Ollama.
type Embedder struct {
	embedder  embeddings.Embedder
	dimension int
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &Embedder{embedder: e}, nil
}

func (e *Embedder) Name() string { return "ollama" }

func (e *Embedder) Prepare(ctx context.Context, corpus []string) error { return nil }

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, errors.New("no embedding returned")
	}
	if e.dimension == 0 {
		e.dimension = len(v)
	}
	return v, nil
}
