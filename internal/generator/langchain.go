package generator

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainConfig selects a langchaingo model provider.
type LangChainConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKeyEnv   string
	MaxTokens   int
	Temperature float64
}

// LangChainLLM adapts a langchaingo model to LLM.
type LangChainLLM struct {
	model llms.Model
	opts  []llms.CallOption
}

func NewLangChain(cfg LangChainConfig) (*LangChainLLM, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "anthropic", "":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
		model, err = anthropic.New(
			anthropic.WithToken(key),
			anthropic.WithModel(cfg.Model),
		)
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
		opts := []openai.Option{openai.WithToken(key), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", cfg.Provider, err)
	}

	var opts []llms.CallOption
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	opts = append(opts, llms.WithTemperature(cfg.Temperature))
	return &LangChainLLM{model: model, opts: opts}, nil
}

func (l *LangChainLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l.model, prompt, l.opts...)
}
