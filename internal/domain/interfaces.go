package domain

// Document is the text extracted from one uploaded resume.
type Document struct {
	ID      string
	Name    string
	Content string
}

// Chunk is a bounded segment of a document used for embedding and retrieval.
// Overlap counts the leading runes of Text repeated from the previous chunk.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Overlap    int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Answer is the generated reply to a question plus the chunks it was grounded on.
type Answer struct {
	Question string
	Text     string
	Sources  []SearchResult
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
