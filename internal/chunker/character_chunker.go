package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"resumeqa/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultSeparator = "\n\n"
)

// CharacterChunker packs separator-terminated paragraphs into chunks of at
// most size runes. Chunks keep every byte of the input, so dropping each
// chunk's Overlap prefix and concatenating rebuilds the document exactly.
// A paragraph longer than size is emitted whole.
type CharacterChunker struct {
	size      int
	overlap   int
	separator string
}

func NewCharacterChunker(size, overlap int, separator string) *CharacterChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return &CharacterChunker{size: size, overlap: overlap, separator: separator}
}

func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	bodies := c.pack(c.units(document.Content))

	chunks := make([]domain.Chunk, 0, len(bodies))
	consumed := 0 // bytes of document.Content already emitted
	for i, body := range bodies {
		prefix := ""
		if i > 0 {
			room := c.size - utf8.RuneCountInString(body)
			prefix = lastRunes(document.Content[:consumed], min(c.overlap, room))
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(i),
			Text:       prefix + body,
			Index:      i,
			Overlap:    utf8.RuneCountInString(prefix),
		})
		consumed += len(body)
	}
	return chunks, nil
}

// units splits text after each separator; the pieces concatenate back to text.
func (c *CharacterChunker) units(text string) []string {
	var out []string
	for text != "" {
		i := strings.Index(text, c.separator)
		if i < 0 {
			out = append(out, text)
			break
		}
		end := i + len(c.separator)
		out = append(out, text[:end])
		text = text[end:]
	}
	return out
}

// pack merges units greedily into bodies that leave room for the overlap prefix.
func (c *CharacterChunker) pack(units []string) []string {
	limit := c.size - c.overlap
	var (
		bodies []string
		cur    strings.Builder
		curLen int
	)
	for _, u := range units {
		n := utf8.RuneCountInString(u)
		if curLen > 0 && curLen+n > limit {
			bodies = append(bodies, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(u)
		curLen += n
	}
	if curLen > 0 {
		bodies = append(bodies, cur.String())
	}
	return bodies
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := len(s)
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// Reconstruct joins chunks back into the text they were cut from.
func Reconstruct(chunks []domain.Chunk) string {
	var sb strings.Builder
	for _, ch := range chunks {
		text := ch.Text
		for skip := ch.Overlap; skip > 0 && text != ""; skip-- {
			_, size := utf8.DecodeRuneInString(text)
			text = text[size:]
		}
		sb.WriteString(text)
	}
	return sb.String()
}
