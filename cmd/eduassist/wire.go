package main

import (
	"context"
	"fmt"

	"eduassist/internal/chunker"
	"eduassist/internal/config"
	"eduassist/internal/embedding"
	"eduassist/internal/ingest"
	"eduassist/internal/llm"
	"eduassist/internal/loader"
	"eduassist/internal/retrieval"
	"eduassist/internal/session"
	"eduassist/internal/vectorstore"
	"eduassist/internal/websearch"

	"go.uber.org/zap"
)

// deps is the fully-wired set of components a subcommand needs. Both
// the serve and ingest subcommands build it with the same buildDeps
// call, so "ingest from the CLI" and "ingest over HTTP" exercise an
// identically constructed orchestrator.
type deps struct {
	cfg       config.Config
	log       *zap.Logger
	embedder  embedding.Embedder
	generator llm.Generator
	vectors   *vectorstore.Store
	web       websearch.Searcher
	sessions  *session.Manager
	orch      *ingest.Orchestrator
	machine   *retrieval.Machine
}

func buildDeps(ctx context.Context, cfg config.Config, log *zap.Logger) (*deps, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}

	vectors, err := vectorstore.New(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}

	var web websearch.Searcher
	if cfg.WebSearchAPIKey != "" {
		web = websearch.New(cfg.WebSearchAPIKey, "", cfg.CallTimeout)
	}

	l := loader.New(loader.Options{})
	ch := chunker.New(chunker.Config{
		ChunkTokens:        cfg.ChunkTokens,
		ChunkOverlapTokens: cfg.ChunkOverlapTokens,
		MinChars:           cfg.MinChars,
		MaxDigitRatio:      cfg.MaxDigitRatio,
	})

	orch := ingest.New(l, ch, embedder, vectors, log, ingest.Config{
		EmbedBatch:       cfg.EmbedBatch,
		EmbedConcurrency: cfg.EmbedConcurrency,
	})

	sessions := session.New(cfg.MaxHistoryMessages)

	var classifier llm.Generator
	if cfg.UseHybridAgent {
		classifier = generator
	}

	machine := retrieval.New(embedder, vectors, web, generator, classifier, retrieval.Config{
		DefaultSearchK:        cfg.DefaultSearchK,
		RelevanceThreshold:    cfg.RelevanceThreshold,
		WebSearchResultsLimit: cfg.WebSearchResultsLimit,
		WebSearchDaysBack:     cfg.WebSearchDaysBack,
		RetrievalDeadline:     cfg.RetrievalDeadline,
		TurnDeadline:          cfg.TurnDeadline,
	})

	return &deps{
		cfg: cfg, log: log,
		embedder: embedder, generator: generator,
		vectors: vectors, web: web, sessions: sessions,
		orch: orch, machine: machine,
	}, nil
}

// buildEmbedder picks the Ollama or OpenAI-compatible embedding
// backend depending on whether an API key is configured, matching the
// teacher's local-first-with-cloud-fallback posture.
func buildEmbedder(cfg config.Config) (embedding.Embedder, error) {
	if cfg.OpenAIAPIKey != "" {
		return embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, "")
	}
	return embedding.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel)
}

func buildGenerator(cfg config.Config) (llm.Generator, error) {
	if cfg.OpenAIAPIKey != "" {
		return llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.LLMModel, "", cfg.LLMTemperature)
	}
	return llm.NewOllamaGenerator(cfg.OllamaHost, cfg.LLMModel)
}
