package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"resumeqa/internal/chunker"
	"resumeqa/internal/config"
	"resumeqa/internal/domain"
	"resumeqa/internal/embedding"
	"resumeqa/internal/embedding/ollama"
	"resumeqa/internal/embedding/openai"
	"resumeqa/internal/embedding/tfidf"
	"resumeqa/internal/generator"
	"resumeqa/internal/service"
	"resumeqa/internal/summarizer"
	"resumeqa/internal/vectorstore"
	"resumeqa/internal/vectorstore/chromem"
	"resumeqa/internal/vectorstore/memory"
	"resumeqa/internal/vectorstore/qdrant"
)

// buildService assembles the pipeline from config. Unknown component types are
// errors; a missing credential only disables that component so the session
// can still start and report the problem per request.
func buildService(cfg *config.AppConfig) (*service.RAGServiceImpl, error) {
	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "character", "":
		ch = chunker.NewCharacterChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, cfg.Chunker.Separator)
	case "recursive":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "chromem", "":
		st = chromem.NewStorage("resume")
	case "memory":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Distance:   cfg.VectorStore.Qdrant.Distance,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		return nil, err
	}
	gen := generator.New(llm, time.Duration(cfg.LLM.TimeoutSecs)*time.Second)

	log.Debug().
		Str("embedder", emb.Name()).
		Str("chunker", cfg.Chunker.Type).
		Str("vector_store", cfg.VectorStore.Type).
		Str("llm", cfg.LLM.Type).
		Str("model", cfg.LLM.Model).
		Msg("pipeline assembled")
	return service.NewRAGService(ch, emb, st, gen, sum, cfg.Retriever.TopK, cfg.Summarizer.MaxSentences), nil
}

func buildEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("openai embedder disabled")
			return embedding.NewUnavailable("openai", err), nil
		}
		return client, nil
	case "ollama":
		var oc config.OllamaEmbedderConfig
		if cfg.Ollama != nil {
			oc = *cfg.Ollama
		}
		e, err := ollama.NewEmbedder(ollama.Config{BaseURL: oc.BaseURL, Model: oc.Model})
		if err != nil {
			log.Warn().Err(err).Msg("ollama embedder disabled")
			return embedding.NewUnavailable("ollama", err), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func buildLLM(cfg config.LLMConfig) (generator.LLM, error) {
	switch cfg.Type {
	case "anthropic", "openai", "ollama", "":
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
	llm, err := generator.NewLangChain(generator.LangChainConfig{
		Provider:    cfg.Type,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		APIKeyEnv:   cfg.APIKeyEnv,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		log.Warn().Err(err).Str("llm", cfg.Type).Msg("language model disabled")
		return generator.Unavailable{Err: err}, nil
	}
	return llm, nil
}
