package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’+#.][\p{L}\p{N}+#]+)*`)
	// Resume lines rarely end with punctuation, so a newline also ends a sentence.
	sentenceRe = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered)
// and returns the best ones in document order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
	minTokens int
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords(), minTokens: 3}
}

// Summarize returns up to maxSentences of the highest scoring sentences.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	type sentence struct {
		idx    int
		text   string
		tokens []string
		score  float64
	}
	var sentences []sentence
	for _, raw := range sentenceRe.FindAllString(text, -1) {
		raw = strings.TrimSpace(raw)
		toks := s.tokens(raw)
		// headings like "EDUCATION" or a bare phone number say little on their own
		if len(toks) < s.minTokens {
			continue
		}
		sentences = append(sentences, sentence{idx: len(sentences), text: raw, tokens: toks})
	}
	// nothing long enough to rank
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range sent.tokens {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}
	for i := range sentences {
		for _, tok := range sentences[i].tokens {
			sentences[i].score += freq[tok] / maxF
		}
		// normalise by length so long bullet lists do not always win
		sentences[i].score /= math.Sqrt(float64(len(sentences[i].tokens)))
	}

	ranked := make([]sentence, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	ranked = ranked[:min(maxSentences, len(ranked))]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.text
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, ok := s.stopwords[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "my", "me", "we", "our",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
