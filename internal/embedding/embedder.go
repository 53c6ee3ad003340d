package embedding

import (
	"context"
	"fmt"

	"resumeqa/internal/domain"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Unavailable is an Embedder that could not be configured, typically because
// its credential is missing. Every call reports the configuration error.
type Unavailable struct {
	name string
	err  error
}

func NewUnavailable(name string, err error) *Unavailable {
	return &Unavailable{name: name, err: err}
}

func (u *Unavailable) Name() string { return u.name }
func (u *Unavailable) Dimension() int { return 0 }

func (u *Unavailable) Prepare(ctx context.Context, corpus []string) error {
	return fmt.Errorf("%w: %s embedder unavailable: %w", domain.ErrEmbedding, u.name, u.err)
}

func (u *Unavailable) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: %s embedder unavailable: %w", domain.ErrEmbedding, u.name, u.err)
}
