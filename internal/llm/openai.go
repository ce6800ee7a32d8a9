package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenAIGenerator streams chat completions from an OpenAI-compatible
// HTTP API. The request shape follows xxxsen-mnote's openAIProvider;
// the SSE-chunk decoding loop is the one mechanical stdlib piece no
// pack repo performs (see DESIGN.md) since none of them stream.
type OpenAIGenerator struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	client      *http.Client
}

// NewOpenAIGenerator constructs an OpenAIGenerator for the given
// model and sampling temperature.
func NewOpenAIGenerator(apiKey, model, baseURL string, temperature float64) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY is required for the openai backend")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIGenerator{
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		client:      &http.Client{Timeout: 0},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream issues a streaming chat-completion request and forwards each
// SSE "data:" chunk's delta content to the caller.
func (o *OpenAIGenerator) Stream(ctx context.Context, messages []Message, deltas chan<- string) error {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Messages:    toOpenAIMessages(messages),
		Stream:      true,
		Temperature: o.temperature,
	})
	if err != nil {
		return fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("llm: openai unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: openai returned status %d", resp.StatusCode)
	}

	sent := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			select {
			case deltas <- c.Delta.Content:
				sent = true
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if sent {
			return fmt.Errorf("llm: openai stream interrupted: %w", err)
		}
		return fmt.Errorf("llm: openai stream read: %w", err)
	}
	return nil
}

func toOpenAIMessages(messages []Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
