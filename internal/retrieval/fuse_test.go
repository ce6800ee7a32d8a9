package retrieval

import (
	"strings"
	"testing"

	"eduassist/internal/domain"

	"github.com/stretchr/testify/assert"
)

func rc(text string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{Chunk: domain.Chunk{Text: text, Metadata: domain.Metadata{Source: "doc.pdf", Page: 1}}, Score: score}
}

func wr(title string, score float64) domain.WebResult {
	return domain.WebResult{Title: title, URL: "https://example.com", Snippet: "snippet", Score: score}
}

func TestFuse_TextbookSourcesPrecedeWebSources(t *testing.T) {
	combined := fuse([]domain.RetrievedChunk{rc("a rational number", 0.9)}, []domain.WebResult{wr("quantum news", 0.8)}, DefaultContextCharBudget)
	textbookIdx := strings.Index(combined, "[TEXTBOOK SOURCES]")
	webIdx := strings.Index(combined, "[WEB SOURCES]")
	assert.GreaterOrEqual(t, textbookIdx, 0)
	assert.GreaterOrEqual(t, webIdx, 0)
	assert.Less(t, textbookIdx, webIdx)
}

func TestFuse_OrdersByDescendingScoreWithinBlock(t *testing.T) {
	combined := fuse([]domain.RetrievedChunk{
		rc("low score chunk", 0.3),
		rc("high score chunk", 0.9),
	}, nil, DefaultContextCharBudget)
	assert.Less(t, strings.Index(combined, "high score chunk"), strings.Index(combined, "low score chunk"))
}

func TestFuse_EmptyInputsProduceEmptyContext(t *testing.T) {
	assert.Equal(t, "", fuse(nil, nil, DefaultContextCharBudget))
}

func TestFuse_TruncatesLowestRankedItemsFirstWhenOverBudget(t *testing.T) {
	var pdf []domain.RetrievedChunk
	for i := 0; i < 10; i++ {
		pdf = append(pdf, rc(strings.Repeat("x", 500), float64(10-i)/10))
	}
	combined := fuse(pdf, nil, 1000)
	assert.LessOrEqual(t, len(combined), 1000)
	assert.Contains(t, combined, "(1)", "the highest-scored item must survive truncation")
}

func TestFuse_ChapterOnlyRenderedWhenPresent(t *testing.T) {
	withChapter := domain.RetrievedChunk{Chunk: domain.Chunk{Text: "t", Metadata: domain.Metadata{Source: "s", Page: 1, HasChapter: true, Chapter: 3}}, Score: 0.5}
	combined := fuse([]domain.RetrievedChunk{withChapter}, nil, DefaultContextCharBudget)
	assert.Contains(t, combined, "chapter=3")

	withoutChapter := rc("t", 0.5)
	combined2 := fuse([]domain.RetrievedChunk{withoutChapter}, nil, DefaultContextCharBudget)
	assert.NotContains(t, combined2, "chapter=")
}
