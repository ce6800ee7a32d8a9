package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaGenerator streams chat completions from a local Ollama
// server. Grounded on the teacher's OllamaLLM: the same api.Client
// and streaming-callback shape, generalized so each callback
// invocation forwards a delta to the caller's channel instead of
// accumulating into a strings.Builder.
type OllamaGenerator struct {
	Client *api.Client
	Model  string
}

// NewOllamaGenerator constructs an OllamaGenerator. host overrides
// OLLAMA_HOST when set.
func NewOllamaGenerator(host, model string) (*OllamaGenerator, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("llm: invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	return &OllamaGenerator{
		Client: api.NewClient(hostURL, http.DefaultClient),
		Model:  model,
	}, nil
}

// Stream streams a chat completion, forwarding each token to deltas
// as Ollama produces it.
func (o *OllamaGenerator) Stream(ctx context.Context, messages []Message, deltas chan<- string) error {
	req := api.ChatRequest{
		Model:    o.Model,
		Messages: toOllamaMessages(messages),
		Options: map[string]any{
			"temperature": 0.7,
		},
	}
	stream := true
	req.Stream = &stream

	sent := false
	err := o.Client.Chat(ctx, &req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			select {
			case deltas <- resp.Message.Content:
				sent = true
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err != nil {
		if sent {
			return fmt.Errorf("llm: ollama stream interrupted: %w", err)
		}
		return fmt.Errorf("llm: ollama unavailable: %w", err)
	}
	return nil
}

func toOllamaMessages(messages []Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, api.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
