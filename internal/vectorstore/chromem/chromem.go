// Package chromem indexes chunk vectors in an in-memory chromem-go collection.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"resumeqa/internal/domain"
)

const defaultCollection = "resume"

// Storage keeps one chromem collection per indexed document; Init always
// replaces the previous collection.
type Storage struct {
	db         *chromem.DB
	name       string
	collection *chromem.Collection
	dimension  int
}

func NewStorage(collection string) *Storage {
	if collection == "" {
		collection = defaultCollection
	}
	return &Storage{db: chromem.NewDB(), name: collection}
}

// vectors always come from our own embedder; chromem must never embed on its own.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem: document has no precomputed embedding")
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	c, err := s.db.CreateCollection(s.name, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.collection = c
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if s.collection == nil {
		return errors.New("collection not initialised")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		docs[i] = chromem.Document{
			ID:      ch.ChunkID,
			Content: ch.Text,
			Metadata: map[string]string{
				"document_id": ch.DocumentID,
				"index":       strconv.Itoa(ch.Index),
				"overlap":     strconv.Itoa(ch.Overlap),
			},
			Embedding: vectors[i],
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	n := s.Count()
	if n == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 4
	}
	// chromem rejects nResults above the collection size.
	res, err := s.collection.QueryEmbedding(ctx, vector, min(topK, n), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(res))
	for _, r := range res {
		index, _ := strconv.Atoi(r.Metadata["index"])
		overlap, _ := strconv.Atoi(r.Metadata["overlap"])
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: r.Metadata["document_id"],
				ChunkID:    r.ID,
				Text:       r.Content,
				Index:      index,
				Overlap:    overlap,
			},
			Score: float64(r.Similarity),
		})
	}
	return results, nil
}

func (s *Storage) Clear(_ context.Context) error {
	if s.collection == nil {
		return nil
	}
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.collection = nil
	return nil
}

func (s *Storage) Count() int {
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}
