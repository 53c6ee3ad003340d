package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"resumeqa/internal/domain"
	"resumeqa/internal/embedding"
	"resumeqa/internal/extractor"
	"resumeqa/internal/generator"
	"resumeqa/internal/vectorstore"
)

// ErrStaleIndex is returned when an Index handle was superseded by a later upload.
var ErrStaleIndex = errors.New("index no longer current: a newer resume was loaded")

const DefaultTopK = 4

// Index is the handle to the similarity index built for exactly one document.
type Index struct {
	ID        string
	Document  domain.Document
	Chunks    []domain.Chunk
	Summary   string
	Dimension int
}

// Empty reports whether the document produced no chunks.
func (i *Index) Empty() bool { return len(i.Chunks) == 0 }

type RAGServiceImpl struct {
	chunker             domain.Chunker
	embedder            embedding.Embedder
	store               vectorstore.Storage
	generator           *generator.Generator
	summarizer          domain.Summarizer
	topK                int
	summaryMaxSentences int

	mu      sync.Mutex
	current string
}

func NewRAGService(chunker domain.Chunker, embedder embedding.Embedder, store vectorstore.Storage, gen *generator.Generator, summarizer domain.Summarizer, topK, summaryMaxSentences int) *RAGServiceImpl {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RAGServiceImpl{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		generator:           gen,
		summarizer:          summarizer,
		topK:                topK,
		summaryMaxSentences: summaryMaxSentences,
	}
}

// TopK is the maximum number of chunks Retrieve returns.
func (s *RAGServiceImpl) TopK() int { return s.topK }

// BuildIndex extracts, chunks and embeds one resume and replaces whatever was
// indexed before. On failure nothing stays indexed.
func (s *RAGServiceImpl) BuildIndex(ctx context.Context, name string, data []byte) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// the previous handle is invalid from here on, whatever happens next
	s.current = ""

	start := time.Now()
	text, err := extractor.Extract(name, data)
	if err != nil {
		s.dropStore(ctx)
		return nil, err
	}
	doc := domain.Document{ID: uuid.NewString(), Name: name, Content: text}
	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		s.dropStore(ctx)
		return nil, fmt.Errorf("chunk %s: %w", name, err)
	}
	if err := s.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("%w: clear index: %w", domain.ErrEmbedding, err)
	}

	idx := &Index{ID: uuid.NewString(), Document: doc, Chunks: chunks}
	if len(chunks) > 0 {
		dim, err := s.embedChunks(ctx, chunks)
		if err != nil {
			s.dropStore(ctx)
			return nil, err
		}
		idx.Dimension = dim
	}

	if s.summarizer != nil && strings.TrimSpace(text) != "" {
		summary, err := s.summarizer.Summarize(text, s.summaryMaxSentences)
		if err != nil {
			log.Warn().Err(err).Msg("summarize resume")
		}
		idx.Summary = summary
	}

	s.current = idx.ID
	log.Info().
		Str("document_id", doc.ID).
		Str("file", name).
		Int("chars", len([]rune(text))).
		Int("chunks", len(chunks)).
		Int("dimension", idx.Dimension).
		Str("embedder", s.embedder.Name()).
		Dur("took", time.Since(start)).
		Msg("resume indexed")
	return idx, nil
}

func (s *RAGServiceImpl) dropStore(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("clear index after failed build")
	}
}

func (s *RAGServiceImpl) embedChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	if err := s.embedder.Prepare(ctx, texts); err != nil {
		return 0, wrapEmbedding(err)
	}
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return 0, wrapEmbedding(err)
		}
		vectors[i] = vec
	}
	dim := len(vectors[0])
	if err := s.store.Init(ctx, dim); err != nil {
		return 0, fmt.Errorf("%w: init index: %w", domain.ErrEmbedding, err)
	}
	if err := s.store.Upsert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("%w: store vectors: %w", domain.ErrEmbedding, err)
	}
	return dim, nil
}

// Retrieve returns at most TopK chunks of idx, most similar first.
func (s *RAGServiceImpl) Retrieve(ctx context.Context, idx *Index, query string) ([]domain.SearchResult, error) {
	if err := s.checkCurrent(idx); err != nil {
		return nil, err
	}
	if idx.Empty() {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, wrapEmbedding(err)
	}
	// no query term is in the vocabulary, so every similarity is zero
	if isZero(vec) {
		return lexicalSearch(idx.Chunks, query, s.topK), nil
	}
	res, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrEmbedding, err)
	}
	res = normalizeResults(res, s.topK)
	if allZero(res) {
		return lexicalSearch(idx.Chunks, query, s.topK), nil
	}
	return res, nil
}

// Answer retrieves context for query and asks the language model once.
func (s *RAGServiceImpl) Answer(ctx context.Context, idx *Index, query string) (*domain.Answer, error) {
	start := time.Now()
	results, err := s.Retrieve(ctx, idx, query)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("results", len(results)).Int("top_k", s.topK).Dur("took", time.Since(start)).Msg("context retrieved")
	return s.generator.Generate(ctx, query, results)
}

// Clear drops the current index; any outstanding handle becomes stale.
func (s *RAGServiceImpl) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	return s.store.Clear(ctx)
}

func (s *RAGServiceImpl) checkCurrent(idx *Index) error {
	if idx == nil {
		return ErrStaleIndex
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx.ID != s.current {
		return ErrStaleIndex
	}
	return nil
}

func wrapEmbedding(err error) error {
	if errors.Is(err, domain.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}

// normalizeResults maps NaN scores to 0, orders by score and caps at topK.
func normalizeResults(res []domain.SearchResult, topK int) []domain.SearchResult {
	for i := range res {
		if math.IsNaN(res[i].Score) {
			res[i].Score = 0
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Score > res[j].Score })
	if len(res) > topK {
		res = res[:topK]
	}
	return res
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func allZero(res []domain.SearchResult) bool {
	for _, r := range res {
		if r.Score > 1e-9 {
			return false
		}
	}
	return true
}

var unicodeWordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// lexicalSearch ranks chunks by word overlap with the query (Ochiai coefficient).
// Ties keep chunk order.
func lexicalSearch(chunks []domain.Chunk, query string, topK int) []domain.SearchResult {
	qset := toTokenSet(query)
	out := make([]domain.SearchResult, len(chunks))
	for i, ch := range chunks {
		out[i] = domain.SearchResult{Chunk: ch, Score: overlapOchiai(qset, ch.Text)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	// |A∩B| / sqrt(|A||B|)
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
