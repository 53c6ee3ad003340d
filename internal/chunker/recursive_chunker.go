package chunker

import (
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"resumeqa/internal/domain"
)

// RecursiveChunker delegates splitting to langchaingo's recursive character
// splitter. The splitter trims whitespace, so chunks do not reconstruct the
// document byte for byte and Overlap is left at zero.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(document.Content)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       p,
			Index:      idx,
		})
	}
	return chunks, nil
}
