package retrieval

import (
	"context"
	"testing"
	"time"

	"eduassist/internal/domain"
	"eduassist/internal/llm"
	"eduassist/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ latency time.Duration }

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeVectors struct {
	latency time.Duration
	results []domain.RetrievedChunk
	size    int
}

func (f *fakeVectors) Search(ctx context.Context, queryVector []float32, k int, filter vectorstore.Filter) ([]domain.RetrievedChunk, error) {
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, nil
}

func (f *fakeVectors) Size(ctx context.Context) (int, error) { return f.size, nil }

type fakeWeb struct {
	latency time.Duration
	results []domain.WebResult
}

func (f *fakeWeb) SearchRecent(ctx context.Context, query string, n, daysBack int) []domain.WebResult {
	return f.searchWithLatency(ctx)
}
func (f *fakeWeb) SearchEducational(ctx context.Context, query string, n int) []domain.WebResult {
	return f.searchWithLatency(ctx)
}
func (f *fakeWeb) searchWithLatency(ctx context.Context) []domain.WebResult {
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return nil
		}
	}
	return f.results
}

type fakeGenerator struct {
	deltas []string
	err    error
}

func (g *fakeGenerator) Stream(ctx context.Context, messages []llm.Message, deltas chan<- string) error {
	for _, d := range g.deltas {
		select {
		case deltas <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.err
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestRun_StreamingOrderIsChunkStarSourcesDone(t *testing.T) {
	m := New(&fakeEmbedder{}, &fakeVectors{results: []domain.RetrievedChunk{rc("a rational number", 0.9)}}, &fakeWeb{}, &fakeGenerator{deltas: []string{"hel", "lo"}}, nil, Config{})
	events := drain(t, m.Run(context.Background(), "What is a rational number in chapter 2?", nil))

	require.GreaterOrEqual(t, len(events), 2)
	for _, e := range events[:len(events)-2] {
		assert.Equal(t, EventChunk, e.Kind)
	}
	assert.Equal(t, EventSources, events[len(events)-2].Kind)
	assert.Equal(t, EventDone, events[len(events)-1].Kind)
}

func TestRun_GreetingSkipsRetrievalEntirely(t *testing.T) {
	vectors := &fakeVectors{results: []domain.RetrievedChunk{rc("should not be used", 0.9)}}
	m := New(&fakeEmbedder{}, vectors, &fakeWeb{results: []domain.WebResult{wr("should not be used", 0.9)}}, &fakeGenerator{deltas: []string{"Hi there!"}}, nil, Config{})
	events := drain(t, m.Run(context.Background(), "Hello", nil))

	var sources *Sources
	for _, e := range events {
		if e.Kind == EventSources {
			sources = e.Sources
		}
	}
	require.NotNil(t, sources)
	assert.Equal(t, domain.RouteNone, sources.RouteUsed)
	assert.Empty(t, sources.PDFSources)
	assert.Empty(t, sources.WebSources)
}

func TestRun_BothRouteParallelismWallClockBoundedByMax(t *testing.T) {
	pdfLatency := 150 * time.Millisecond
	webLatency := 50 * time.Millisecond
	// Neither the recency nor the textbook keyword family fires on its
	// own for this query, so the router's rule-based tie-break defers
	// to the classifier (spec §4.5.1 rule 4); a classifier returning
	// BOTH drives the fan-out this test exercises.
	m := New(
		&fakeEmbedder{latency: pdfLatency},
		&fakeVectors{results: []domain.RetrievedChunk{rc("modern computers use rational numbers", 0.9)}},
		&fakeWeb{latency: webLatency, results: []domain.WebResult{wr("computing today", 0.8)}},
		&fakeGenerator{deltas: []string{"answer"}},
		&tokenClassifier{token: "BOTH"},
		Config{},
	)

	start := time.Now()
	events := drain(t, m.Run(context.Background(), "How do modern computers use rational numbers?", nil))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, pdfLatency+webLatency, "BOTH-route retrieval must run concurrently, not serially")

	var sources *Sources
	for _, e := range events {
		if e.Kind == EventSources {
			sources = e.Sources
		}
	}
	require.NotNil(t, sources)
	assert.Equal(t, domain.RouteBoth, sources.RouteUsed)
	assert.NotEmpty(t, sources.PDFSources)
	assert.NotEmpty(t, sources.WebSources)
}

func TestRun_WebFailureDegradesToEmptyWithoutAbortingPDF(t *testing.T) {
	m := New(
		&fakeEmbedder{},
		&fakeVectors{results: []domain.RetrievedChunk{rc("modern computers use rational numbers", 0.9)}},
		nil, // nil Searcher: retrieveWeb treats this as "no web results"
		&fakeGenerator{deltas: []string{"answer"}},
		&tokenClassifier{token: "BOTH"},
		Config{},
	)
	events := drain(t, m.Run(context.Background(), "How do modern computers use rational numbers?", nil))

	var sources *Sources
	for _, e := range events {
		if e.Kind == EventSources {
			sources = e.Sources
		}
	}
	require.NotNil(t, sources)
	assert.Empty(t, sources.WebSources)
	assert.NotEmpty(t, sources.PDFSources)
}

func TestRun_GeneratorUnavailableEmitsFatalError(t *testing.T) {
	m := New(&fakeEmbedder{}, &fakeVectors{}, &fakeWeb{}, nil, nil, Config{})
	events := drain(t, m.Run(context.Background(), "Hello", nil))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
}

func TestRun_GenerationInterruptedMidStreamEmitsError(t *testing.T) {
	m := New(&fakeEmbedder{}, &fakeVectors{}, &fakeWeb{}, &fakeGenerator{deltas: []string{"partial"}, err: assert.AnError}, nil, Config{})
	events := drain(t, m.Run(context.Background(), "Hello", nil))
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Kind)

	var sawChunk bool
	for _, e := range events {
		if e.Kind == EventChunk {
			sawChunk = true
		}
	}
	assert.True(t, sawChunk, "partial deltas were emitted before the interruption")
}

func TestRun_RelevanceThresholdFiltersLowScoreChunks(t *testing.T) {
	m := New(
		&fakeEmbedder{},
		&fakeVectors{results: []domain.RetrievedChunk{rc("chapter about rational numbers", 0.05)}},
		&fakeWeb{},
		&fakeGenerator{deltas: []string{"answer"}},
		nil,
		Config{RelevanceThreshold: 0.2},
	)
	events := drain(t, m.Run(context.Background(), "Tell me about chapter 2 exercises", nil))

	var sources *Sources
	for _, e := range events {
		if e.Kind == EventSources {
			sources = e.Sources
		}
	}
	require.NotNil(t, sources)
	assert.Empty(t, sources.PDFSources, "a chunk scoring below RELEVANCE_THRESHOLD must be dropped")
}
