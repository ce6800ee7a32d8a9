package retrieval

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"eduassist/internal/domain"
	"eduassist/internal/llm"
)

var (
	greetingWords  = []string{"hello", "hi", "hey", "thanks", "thank you", "bye"}
	recencyWords   = []string{"latest", "recent", "current", "news", "today", "this year", "update", "breaking"}
	textbookWords  = []string{"chapter", "section", "exercise", "textbook", "problem"}
	structuralRefs = regexp.MustCompile(`\d+\.\d+`)
	yearTokenRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// Router decides a Route for a query, per spec §4.5.1: rule-based
// with an LLM fallback when both or neither keyword family fires.
// Grounded behaviorally on hybrid_agent.py's _route_query, simplified
// to the four-rule decision tree spec §4.5.1 defines (this spec does
// not carry over the source's non-educational-keyword rejection list,
// which has no corresponding [MODULE]/operation).
type Router struct {
	classifier   llm.Generator
	indexIsEmpty func(ctx context.Context) bool
	currentYear  int
}

// NewRouter constructs a Router. indexIsEmpty reports whether the
// vector index currently holds zero chunks, used only to break ties
// when the classifier fallback itself fails (rule 4).
func NewRouter(classifier llm.Generator, indexIsEmpty func(ctx context.Context) bool, currentYear int) *Router {
	return &Router{classifier: classifier, indexIsEmpty: indexIsEmpty, currentYear: currentYear}
}

// Route applies spec §4.5.1's four rules in order.
func (r *Router) Route(ctx context.Context, query string) domain.Route {
	normalized := strings.ToLower(strings.TrimSpace(query))

	if isGreeting(normalized) {
		return domain.RouteNone
	}

	recency := matchesRecency(normalized, r.currentYear)
	textbook := matchesTextbook(normalized)

	switch {
	case recency && !textbook:
		return domain.RouteWeb
	case textbook && !recency:
		return domain.RoutePDF
	case recency && textbook:
		return r.classify(ctx, query)
	default:
		return r.classify(ctx, query)
	}
}

func isGreeting(normalized string) bool {
	if strings.Contains(normalized, "?") {
		return false
	}
	words := strings.Fields(normalized)
	if len(words) >= 5 {
		return false
	}
	for i, w := range words {
		words[i] = strings.TrimFunc(w, unicode.IsPunct)
	}
	padded := " " + strings.Join(words, " ") + " "
	for _, g := range greetingWords {
		if strings.Contains(padded, " "+g+" ") {
			return true
		}
	}
	return false
}

func matchesRecency(normalized string, currentYear int) bool {
	for _, k := range recencyWords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	if m := yearTokenRe.FindString(normalized); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil && year >= currentYear-1 {
			return true
		}
	}
	return false
}

func matchesTextbook(normalized string) bool {
	for _, k := range textbookWords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return structuralRefs.MatchString(normalized)
}

const classifierTimeout = 5 * time.Second

var routeTokens = map[string]domain.Route{
	"NONE":     domain.RouteNone,
	"PDF_ONLY": domain.RoutePDF,
	"WEB_ONLY": domain.RouteWeb,
	"BOTH":     domain.RouteBoth,
}

// classify consults the LLM with a constrained classifier prompt. On
// timeout or an unparseable label it falls back to PDF_ONLY when the
// index is non-empty, else WEB_ONLY (spec §4.5.1 rule 4).
func (r *Router) classify(ctx context.Context, query string) domain.Route {
	if r.classifier == nil {
		return r.fallback(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	deltas := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- r.classifier.Stream(cctx, []llm.Message{
			{Role: llm.RoleSystem, Content: "Classify the user query into exactly one token: NONE, PDF_ONLY, WEB_ONLY, or BOTH. Reply with only that token."},
			{Role: llm.RoleUser, Content: query},
		}, deltas)
		close(deltas)
	}()

	var sb strings.Builder
	for d := range deltas {
		sb.WriteString(d)
	}
	if err := <-done; err != nil {
		return r.fallback(ctx)
	}

	label := strings.ToUpper(strings.TrimSpace(sb.String()))
	if route, ok := routeTokens[label]; ok {
		return route
	}
	return r.fallback(ctx)
}

func (r *Router) fallback(ctx context.Context) domain.Route {
	if r.indexIsEmpty != nil && r.indexIsEmpty(ctx) {
		return domain.RouteWeb
	}
	return domain.RoutePDF
}
