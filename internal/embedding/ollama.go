package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaEmbedder generates embeddings using a local Ollama server.
// Retry and timeout handling follow the teacher's shape; the retry
// loop and request construction are unchanged, only the surrounding
// interface and vector type are generalized from the golf-rules
// domain to the spec's Embedder contract.
type OllamaEmbedder struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// NewOllamaEmbedder creates a new Ollama embedder. host overrides the
// OLLAMA_HOST environment variable read by envconfig.Host() when set.
func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("embedding: invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaEmbedder{
		Client:     client,
		Model:      model,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}, nil
}

// EmbedText generates an embedding for a single text, retrying on
// transient failures.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for retries := 0; retries <= e.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(retries) * time.Second):
			}
		}

		embedding, err := e.createEmbedding(ctx, text)
		if err == nil {
			return embedding, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embedding: ollama failed after %d retries: %w", e.MaxRetries, lastErr)
}

func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float32, error) {
	req := api.EmbeddingRequest{
		Model:   e.Model,
		Prompt:  text,
		Options: map[string]any{},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	resp, err := e.Client.Embeddings(ctxWithTimeout, &req)
	if err != nil {
		return nil, fmt.Errorf("embedding: ollama request: %w", err)
	}

	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
