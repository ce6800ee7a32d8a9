package retrieval

import (
	"context"
	"testing"
	"time"

	"eduassist/internal/domain"
	"eduassist/internal/llm"

	"github.com/stretchr/testify/assert"
)

func TestRoute_GreetingReturnsNone(t *testing.T) {
	r := NewRouter(nil, neverEmpty, 2026)
	assert.Equal(t, domain.RouteNone, r.Route(context.Background(), "Hello"))
	assert.Equal(t, domain.RouteNone, r.Route(context.Background(), "hey there"))
}

func TestRoute_RecencyKeywordReturnsWebOnly(t *testing.T) {
	r := NewRouter(nil, neverEmpty, 2026)
	got := r.Route(context.Background(), "What are the latest developments in quantum computing in 2024?")
	assert.Equal(t, domain.RouteWeb, got)
}

func TestRoute_TextbookKeywordReturnsPDFOnly(t *testing.T) {
	r := NewRouter(nil, neverEmpty, 2026)
	got := r.Route(context.Background(), "Can you explain exercise 4.2 from chapter 3?")
	assert.Equal(t, domain.RoutePDF, got)
}

func TestRoute_IsDeterministicIndependentOfClassifier(t *testing.T) {
	// Rule (3) fires uniquely here (textbook, no recency trigger); the
	// classifier must never be consulted, so a classifier that always
	// errors must not change the outcome (spec §8 route determinism).
	r := NewRouter(&erroringClassifier{}, neverEmpty, 2026)
	got := r.Route(context.Background(), "What is section 2.1 about?")
	assert.Equal(t, domain.RoutePDF, got)
}

func TestRoute_NeitherPatternFallsBackToClassifier(t *testing.T) {
	r := NewRouter(&tokenClassifier{token: "BOTH"}, neverEmpty, 2026)
	got := r.Route(context.Background(), "How do computers use rational numbers?")
	assert.Equal(t, domain.RouteBoth, got)
}

func TestRoute_ClassifierInvalidLabelFallsBackDeterministically(t *testing.T) {
	r := NewRouter(&tokenClassifier{token: "banana"}, neverEmpty, 2026)
	got := r.Route(context.Background(), "tell me something")
	assert.Equal(t, domain.RoutePDF, got, "non-empty index falls back to PDF_ONLY")

	r2 := NewRouter(&tokenClassifier{token: "banana"}, alwaysTrue, 2026)
	got2 := r2.Route(context.Background(), "tell me something")
	assert.Equal(t, domain.RouteWeb, got2, "empty index falls back to WEB_ONLY")
}

func TestRoute_ClassifierTimeoutFallsBackDeterministically(t *testing.T) {
	r := NewRouter(&slowClassifier{}, alwaysTrue, 2026)
	got := r.Route(context.Background(), "ambiguous query")
	assert.Equal(t, domain.RouteWeb, got)
}

func neverEmpty(ctx context.Context) bool { return false }
func alwaysTrue(ctx context.Context) bool { return true }

type erroringClassifier struct{}

func (c *erroringClassifier) Stream(ctx context.Context, messages []llm.Message, deltas chan<- string) error {
	return assert.AnError
}

type tokenClassifier struct{ token string }

func (c *tokenClassifier) Stream(ctx context.Context, messages []llm.Message, deltas chan<- string) error {
	deltas <- c.token
	return nil
}

type slowClassifier struct{}

func (c *slowClassifier) Stream(ctx context.Context, messages []llm.Message, deltas chan<- string) error {
	select {
	case <-time.After(classifierTimeout + time.Second):
		deltas <- "BOTH"
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
