// Package embedding provides the Embedding Provider (C3): mapping
// text to a dense vector. Two backends are offered, Ollama (local)
// and an OpenAI-compatible HTTP API, both satisfying the same
// Embedder interface so the rest of the pipeline is backend-agnostic.
package embedding

import "context"

// Embedder maps text to a dense vector. Implementations must be safe
// for concurrent use; the ingestion orchestrator (C9) calls EmbedText
// from several goroutines at once, with bounded concurrency.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
