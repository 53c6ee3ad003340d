package vectorstore

import (
	"context"

	"resumeqa/internal/domain"
)

// Storage holds the vectors of exactly one document and supports similarity search.
// Init starts a fresh index; Clear drops it.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context) error
	Count() int
}
