// Package generator turns a question and its retrieved chunks into an answer
// from a remote language model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"resumeqa/internal/domain"
)

// LLM completes a single prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator makes exactly one LLM call per question; failures are not retried.
// The reply is passed through untouched, an empty one included.
type Generator struct {
	llm     LLM
	timeout time.Duration
}

func New(llm LLM, timeout time.Duration) *Generator {
	return &Generator{llm: llm, timeout: timeout}
}

func (g *Generator) Generate(ctx context.Context, question string, results []domain.SearchResult) (*domain.Answer, error) {
	prompt, err := BuildPrompt(question, results)
	if err != nil {
		return nil, fmt.Errorf("%w: build prompt: %w", domain.ErrGeneration, err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}
	log.Debug().
		Int("sources", len(results)).
		Int("prompt_len", len(prompt)).
		Dur("took", time.Since(start)).
		Msg("answer generated")

	return &domain.Answer{Question: question, Text: text, Sources: results}, nil
}

// Unavailable stands in for an LLM that could not be configured.
type Unavailable struct {
	Err error
}

func (u Unavailable) Generate(context.Context, string) (string, error) {
	if u.Err == nil {
		return "", errors.New("language model unavailable")
	}
	return "", u.Err
}
