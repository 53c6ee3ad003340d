package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"resumeqa/internal/chunker"
	"resumeqa/internal/domain"
	"resumeqa/internal/embedding"
	"resumeqa/internal/embedding/tfidf"
	"resumeqa/internal/generator"
	"resumeqa/internal/summarizer"
	"resumeqa/internal/vectorstore/memory"
)

type countingEmbedder struct {
	embedding.Embedder
	embeds atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds.Add(1)
	return c.Embedder.Embed(ctx, text)
}

// fakeLLM answers from the prompt the way a grounded model would.
type fakeLLM struct {
	calls   atomic.Int32
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.prompts = append(f.prompts, prompt)
	if strings.Contains(prompt, "Python") && strings.Contains(prompt, "Java") {
		return "The candidate knows Python and Java.", nil
	}
	return "I don't know.", nil
}

type fixture struct {
	svc   *RAGServiceImpl
	emb   *countingEmbedder
	store *memory.Storage
	llm   *fakeLLM
}

func newFixture(size int) *fixture {
	f := &fixture{
		emb:   &countingEmbedder{Embedder: tfidf.NewEmbedder()},
		store: memory.NewStorage(),
		llm:   &fakeLLM{},
	}
	f.svc = NewRAGService(
		chunker.NewCharacterChunker(size, 0, chunker.DefaultSeparator),
		f.emb,
		f.store,
		generator.New(f.llm, 0),
		summarizer.NewFrequencySummarizer(),
		DefaultTopK,
		3,
	)
	return f
}

const resumeText = "Jane Doe, backend engineer.\n\n" +
	"Skills: Go, Kubernetes, PostgreSQL and gRPC.\n\n" +
	"Experience: built Go services at Acme for 5 years.\n\n" +
	"Education: BSc Computer Science, 2015.\n\n" +
	"Hobbies: chess, climbing and running.\n\n" +
	"Languages: English, Spanish and German.\n\n" +
	"Certified Kubernetes administrator since 2020.\n\n"

func TestRetrieveTopKAndOrdering(t *testing.T) {
	f := newFixture(60)
	ctx := context.Background()
	idx, err := f.svc.BuildIndex(ctx, "resume.txt", []byte(resumeText))
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if len(idx.Chunks) <= DefaultTopK {
		t.Fatalf("want more than %d chunks, got %d", DefaultTopK, len(idx.Chunks))
	}

	queries := []string{"Kubernetes experience", "Which Go services?", "education", "zzz unknown words"}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			res, err := f.svc.Retrieve(ctx, idx, q)
			if err != nil {
				t.Fatalf("Retrieve() error = %v", err)
			}
			if len(res) == 0 || len(res) > DefaultTopK {
				t.Fatalf("got %d results, want 1..%d", len(res), DefaultTopK)
			}
			for i := 1; i < len(res); i++ {
				if res[i].Score > res[i-1].Score {
					t.Errorf("score[%d]=%v > score[%d]=%v", i, res[i].Score, i-1, res[i-1].Score)
				}
			}
		})
	}

	res, _ := f.svc.Retrieve(ctx, idx, "Kubernetes")
	if !strings.Contains(res[0].Chunk.Text, "Kubernetes") {
		t.Errorf("best chunk = %q, want one mentioning Kubernetes", res[0].Chunk.Text)
	}
}

func TestRetrieveIdempotent(t *testing.T) {
	f := newFixture(60)
	ctx := context.Background()
	const q = "What databases does she use?"

	first, err := f.svc.BuildIndex(ctx, "resume.txt", []byte(resumeText))
	if err != nil {
		t.Fatal(err)
	}
	want, err := f.svc.Retrieve(ctx, first, q)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.BuildIndex(ctx, "resume.txt", []byte(resumeText))
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.svc.Retrieve(ctx, second, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Chunk.Text != want[i].Chunk.Text || got[i].Score != want[i].Score {
			t.Errorf("result %d = (%q, %v), want (%q, %v)", i, got[i].Chunk.Text, got[i].Score, want[i].Chunk.Text, want[i].Score)
		}
	}
}

func TestStaleIndex(t *testing.T) {
	f := newFixture(60)
	ctx := context.Background()
	old, err := f.svc.BuildIndex(ctx, "a.txt", []byte("Skills: Go"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.BuildIndex(ctx, "b.txt", []byte("Skills: Rust")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Retrieve(ctx, old, "skills"); !errors.Is(err, ErrStaleIndex) {
		t.Errorf("Retrieve(old) error = %v, want ErrStaleIndex", err)
	}
	if _, err := f.svc.Retrieve(ctx, nil, "skills"); !errors.Is(err, ErrStaleIndex) {
		t.Errorf("Retrieve(nil) error = %v, want ErrStaleIndex", err)
	}
}

func TestAnswerFromPDF(t *testing.T) {
	f := newFixture(chunker.DefaultChunkSize)
	ctx := context.Background()
	pdf := buildPDF("Skills: Python, Java", "Experience: 5 years experience")
	idx, err := f.svc.BuildIndex(ctx, "resume.pdf", pdf)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	ans, err := f.svc.Answer(ctx, idx, "What programming languages does the candidate know?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(ans.Text, "Python") || !strings.Contains(ans.Text, "Java") {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) == 0 || !strings.Contains(ans.Sources[0].Chunk.Text, "Python, Java") {
		t.Errorf("sources = %+v", ans.Sources)
	}
	if n := f.llm.calls.Load(); n != 1 {
		t.Errorf("llm calls = %d, want 1", n)
	}
}

func TestAnswerEmptyResume(t *testing.T) {
	f := newFixture(chunker.DefaultChunkSize)
	ctx := context.Background()
	idx, err := f.svc.BuildIndex(ctx, "empty.txt", nil)
	if err != nil {
		t.Fatalf("BuildIndex() error = %v", err)
	}
	if !idx.Empty() {
		t.Fatalf("want empty index, got %d chunks", len(idx.Chunks))
	}
	ans, err := f.svc.Answer(ctx, idx, "What are the candidate's key skills?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if ans.Text != "I don't know." {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("sources = %+v, want none", ans.Sources)
	}
	if n := f.emb.embeds.Load(); n != 0 {
		t.Errorf("embed calls = %d, want 0", n)
	}
	if !strings.Contains(f.llm.prompts[0], "\n\n\n\nQuestion: What are the candidate's key skills?") {
		t.Errorf("prompt = %q", f.llm.prompts[0])
	}
}

func TestBuildIndexUnsupportedFormat(t *testing.T) {
	f := newFixture(60)
	ctx := context.Background()
	prev, err := f.svc.BuildIndex(ctx, "resume.txt", []byte(resumeText))
	if err != nil {
		t.Fatal(err)
	}
	embeds := f.emb.embeds.Load()

	idx, err := f.svc.BuildIndex(ctx, "resume.docx", []byte("PK\x03\x04"))
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("BuildIndex() error = %v, want ErrUnsupportedFormat", err)
	}
	if idx != nil {
		t.Errorf("BuildIndex() index = %+v, want nil", idx)
	}
	if f.emb.embeds.Load() != embeds {
		t.Error("embedder called for unsupported file")
	}
	if f.store.Count() != 0 {
		t.Errorf("store count = %d, want 0", f.store.Count())
	}
	if _, err := f.svc.Retrieve(ctx, prev, "Go"); !errors.Is(err, ErrStaleIndex) {
		t.Errorf("previous index still usable: %v", err)
	}
	if f.llm.calls.Load() != 0 {
		t.Error("llm called")
	}
}

func TestBuildIndexEmbeddingFailure(t *testing.T) {
	store := memory.NewStorage()
	svc := NewRAGService(
		chunker.NewCharacterChunker(60, 0, chunker.DefaultSeparator),
		embedding.NewUnavailable("openai", errors.New("missing API key in env OPENAI_API_KEY")),
		store,
		generator.New(&fakeLLM{}, 0),
		nil,
		DefaultTopK,
		3,
	)
	_, err := svc.BuildIndex(context.Background(), "resume.txt", []byte(resumeText))
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("BuildIndex() error = %v, want ErrEmbedding", err)
	}
	if store.Count() != 0 {
		t.Errorf("store count = %d, want 0", store.Count())
	}
}

func TestBuildIndexSummary(t *testing.T) {
	f := newFixture(60)
	idx, err := f.svc.BuildIndex(context.Background(), "resume.txt", []byte(resumeText))
	if err != nil {
		t.Fatal(err)
	}
	if idx.Summary == "" {
		t.Error("empty summary")
	}
	if idx.Document.ID == "" || idx.ID == "" || idx.ID == idx.Document.ID {
		t.Errorf("ids = %q / %q", idx.ID, idx.Document.ID)
	}
	for _, ch := range idx.Chunks {
		if ch.DocumentID != idx.Document.ID {
			t.Errorf("chunk %s belongs to %s", ch.ChunkID, ch.DocumentID)
		}
	}
}

func TestNormalizeResults(t *testing.T) {
	res := []domain.SearchResult{
		{Chunk: domain.Chunk{Index: 0}, Score: math.NaN()},
		{Chunk: domain.Chunk{Index: 1}, Score: 0.5},
		{Chunk: domain.Chunk{Index: 2}, Score: math.NaN()},
		{Chunk: domain.Chunk{Index: 3}, Score: 0.9},
	}
	got := normalizeResults(res, 3)
	wantIdx := []int{3, 1, 0}
	if len(got) != len(wantIdx) {
		t.Fatalf("got %d results", len(got))
	}
	for i, w := range wantIdx {
		if got[i].Chunk.Index != w {
			t.Errorf("result %d index = %d, want %d", i, got[i].Chunk.Index, w)
		}
	}
	if got[2].Score != 0 {
		t.Errorf("NaN score not zeroed: %v", got[2].Score)
	}
}

func TestLexicalSearch(t *testing.T) {
	chunks := []domain.Chunk{
		{Index: 0, Text: "Hobbies: chess"},
		{Index: 1, Text: "Skills: Go and Rust"},
		{Index: 2, Text: "Go, Go, Go"},
	}
	got := lexicalSearch(chunks, "go rust", 2)
	if len(got) != 2 || got[0].Chunk.Index != 1 {
		t.Fatalf("lexicalSearch() = %+v", got)
	}
}

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	var objects []string
	fontObj := 3 + 2*len(pages)
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}
