// Package retrieval is the Hybrid Retrieval State Machine (C6): route
// query, fan out retrieval concurrently, fuse heterogeneous results
// into a single grounded context, and stream a generated answer.
// Grounded behaviorally on original_source/backend/hybrid_agent.py's
// route/search/combine/generate node sequence, explicitly not porting
// its LangGraph StateGraph machinery (spec §9): a plain switch over a
// Route enum plus golang.org/x/sync/errgroup for the BOTH fan-out.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eduassist/internal/domain"
	"eduassist/internal/embedding"
	"eduassist/internal/llm"
	"eduassist/internal/vectorstore"
	"eduassist/internal/websearch"

	"golang.org/x/sync/errgroup"
)

// VectorRepository is the subset of the Vector Repository (C4)
// the state machine depends on.
type VectorRepository interface {
	Search(ctx context.Context, queryVector []float32, k int, filter vectorstore.Filter) ([]domain.RetrievedChunk, error)
	Size(ctx context.Context) (int, error)
}

// Config holds the tunables the state machine needs from spec §6's
// environment table.
type Config struct {
	DefaultSearchK        int
	RelevanceThreshold    float64
	WebSearchResultsLimit int
	WebSearchDaysBack     int
	RetrievalDeadline     time.Duration
	TurnDeadline          time.Duration
	ContextCharBudget     int
	CurrentYear           int
}

// Machine is the C6 hybrid retrieval state machine.
type Machine struct {
	embedder   embedding.Embedder
	vectors    VectorRepository
	web        websearch.Searcher
	generator  llm.Generator
	router     *Router
	cfg        Config
}

// New constructs a Machine. classifier may be nil, in which case the
// router always falls through to the deterministic index-emptiness
// tie-break (spec §4.5.1 rule 4).
func New(embedder embedding.Embedder, vectors VectorRepository, web websearch.Searcher, generator llm.Generator, classifier llm.Generator, cfg Config) *Machine {
	if cfg.DefaultSearchK <= 0 {
		cfg.DefaultSearchK = 4
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = 0.2
	}
	if cfg.WebSearchResultsLimit <= 0 {
		cfg.WebSearchResultsLimit = 3
	}
	if cfg.RetrievalDeadline <= 0 {
		cfg.RetrievalDeadline = 8 * time.Second
	}
	if cfg.TurnDeadline <= 0 {
		cfg.TurnDeadline = 60 * time.Second
	}
	if cfg.CurrentYear <= 0 {
		cfg.CurrentYear = time.Now().Year()
	}

	m := &Machine{embedder: embedder, vectors: vectors, web: web, generator: generator, cfg: cfg}
	m.router = NewRouter(classifier, m.indexIsEmpty, cfg.CurrentYear)
	return m
}

func (m *Machine) indexIsEmpty(ctx context.Context) bool {
	if m.vectors == nil {
		return true
	}
	n, err := m.vectors.Size(ctx)
	if err != nil {
		return true
	}
	return n == 0
}

// Run executes one turn: ROUTE -> retrieve -> FUSE -> GENERATE, and
// returns the event channel C8 consumes. The channel is closed after
// the terminal done/error event. Run never blocks past its own
// bookkeeping; all I/O happens in Run's owned goroutine.
func (m *Machine) Run(ctx context.Context, query string, history []domain.Message) <-chan Event {
	return m.run(ctx, query, history, true)
}

// RunNoRetrieval executes a turn with retrieval forced off (route
// NONE), used when a caller sets use_rag=false on /chat or
// /chat/stream: the generator answers from conversation history and
// general knowledge only.
func (m *Machine) RunNoRetrieval(ctx context.Context, query string, history []domain.Message) <-chan Event {
	return m.run(ctx, query, history, false)
}

func (m *Machine) run(ctx context.Context, query string, history []domain.Message, allowRetrieval bool) <-chan Event {
	events := make(chan Event, 8)

	go func() {
		defer close(events)

		ctx, cancel := context.WithTimeout(ctx, m.cfg.TurnDeadline)
		defer cancel()

		route := domain.RouteNone
		if allowRetrieval {
			route = m.router.Route(ctx, query)
		}

		var pdfSources []domain.RetrievedChunk
		var webSources []domain.WebResult

		switch route {
		case domain.RouteNone:
			// no retrieval
		case domain.RoutePDF:
			pdfSources = m.retrievePDF(ctx, query)
		case domain.RouteWeb:
			webSources = m.retrieveWeb(ctx, query)
		case domain.RouteBoth:
			pdfSources, webSources = m.retrieveBoth(ctx, query)
		default:
			pdfSources, webSources = m.retrieveBoth(ctx, query)
		}

		combined := fuse(pdfSources, webSources, m.cfg.ContextCharBudget)

		messages := buildMessages(combined, history, query)

		if m.generator == nil {
			events <- Event{Kind: EventError, Message: "generation unavailable"}
			return
		}

		deltas := make(chan string, 16)
		genErrCh := make(chan error, 1)
		go func() {
			genErrCh <- m.generator.Stream(ctx, messages, deltas)
			close(deltas)
		}()

		sentAny := false
		for d := range deltas {
			sentAny = true
			select {
			case events <- Event{Kind: EventChunk, Content: d}:
			case <-ctx.Done():
				return
			}
		}

		if err := <-genErrCh; err != nil {
			if !sentAny {
				events <- Event{Kind: EventError, Message: "no information could be generated for this question right now"}
				return
			}
			events <- Event{Kind: EventError, Message: "the answer was interrupted before it finished"}
			return
		}

		events <- Event{Kind: EventSources, Sources: &Sources{
			PDFSources: pdfSources,
			WebSources: webSources,
			RouteUsed:  route,
		}}
		events <- Event{Kind: EventDone}
	}()

	return events
}

// retrieveBoth launches the PDF and web retrieval tasks as two
// logically-independent goroutines joined by RETRIEVAL_DEADLINE_MS.
// They share no mutable state and may complete in either order; a
// failing or timed-out task yields an empty result without aborting
// the other (spec §4.5.2).
func (m *Machine) retrieveBoth(ctx context.Context, query string) ([]domain.RetrievedChunk, []domain.WebResult) {
	rctx, cancel := context.WithTimeout(ctx, m.cfg.RetrievalDeadline)
	defer cancel()

	var pdf []domain.RetrievedChunk
	var web []domain.WebResult

	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() error {
		pdf = m.retrievePDF(gctx, query)
		return nil
	})
	g.Go(func() error {
		web = m.retrieveWeb(gctx, query)
		return nil
	})
	_ = g.Wait()

	return pdf, web
}

func (m *Machine) retrievePDF(ctx context.Context, query string) []domain.RetrievedChunk {
	if m.embedder == nil || m.vectors == nil {
		return nil
	}
	vec, err := m.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil
	}
	results, err := m.vectors.Search(ctx, vec, m.cfg.DefaultSearchK, vectorstore.Filter{})
	if err != nil {
		return nil
	}

	filtered := make([]domain.RetrievedChunk, 0, len(results))
	for _, r := range results {
		if r.Score < m.cfg.RelevanceThreshold {
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) > m.cfg.DefaultSearchK {
		filtered = filtered[:m.cfg.DefaultSearchK]
	}
	return filtered
}

func (m *Machine) retrieveWeb(ctx context.Context, query string) []domain.WebResult {
	if m.web == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(query))
	var results []domain.WebResult
	if matchesRecency(normalized, m.cfg.CurrentYear) {
		results = m.web.SearchRecent(ctx, query, m.cfg.WebSearchResultsLimit, m.cfg.WebSearchDaysBack)
	} else {
		results = m.web.SearchEducational(ctx, query, m.cfg.WebSearchResultsLimit)
	}
	if len(results) > m.cfg.WebSearchResultsLimit {
		results = results[:m.cfg.WebSearchResultsLimit]
	}
	return results
}

const systemPrompt = `You are an educational assistant. Answer clearly and at an appropriate level for a student.
Write inline math as $...$ and block math as $$...$$; no other delimiter is valid.
When the context below includes numbered sources, cite them inline using their labels, (1)...(n) for textbook sources and (W1)...(Wn) for web sources.
If the provided context is empty, explicitly say that no information was found before answering from general knowledge.`

func buildMessages(combinedContext string, history []domain.Message, query string) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	for _, h := range history {
		role := llm.RoleUser
		if h.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Content})
	}

	userTurn := query
	if combinedContext != "" {
		userTurn = fmt.Sprintf("Context:\n%s\n\nQuestion: %s", combinedContext, query)
	} else {
		userTurn = fmt.Sprintf("No grounding context was found for this question.\n\nQuestion: %s", query)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userTurn})
	return messages
}
