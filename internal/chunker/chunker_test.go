package chunker

import (
	"strings"
	"testing"

	"eduassist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_DropsLowQualitySpans(t *testing.T) {
	c := New(Config{MinChars: 50})
	pages := []domain.Page{
		{Source: "algebra.pdf", PageIndex: 1, RawText: "12345 67890 00000 11111"},
	}
	chunks := c.Chunk(pages)
	assert.Empty(t, chunks, "a short, mostly-numeric span should fail the quality filter")
}

func TestChunk_KeepsQualifyingTextAndTagsPage(t *testing.T) {
	c := New(Config{MinChars: 20, ChunkTokens: 800})
	body := strings.Repeat("A rational number is a number that can be expressed as p/q. ", 3)
	pages := []domain.Page{
		{Source: "algebra.pdf", PageIndex: 1, RawText: "short"},
		{Source: "algebra.pdf", PageIndex: 3, RawText: body},
	}
	chunks := c.Chunk(pages)
	require.NotEmpty(t, chunks)
	// Both pages fit one token budget, so they form a single chunk whose
	// first character ("short") comes from page 1.
	assert.Equal(t, 1, chunks[0].Metadata.Page)
	assert.Equal(t, "algebra.pdf", chunks[0].Metadata.Source)
}

func TestChunk_SplitsOversizedTextAtBudget(t *testing.T) {
	c := New(Config{MinChars: 10, ChunkTokens: 20, ChunkOverlapTokens: 0})
	sentence := "This is one sentence about rational numbers and fractions. "
	body := strings.Repeat(sentence, 20)
	pages := []domain.Page{{Source: "doc.pdf", PageIndex: 0, RawText: body}}

	chunks := c.Chunk(pages)
	require.Greater(t, len(chunks), 1, "text far exceeding the token budget must be split into multiple chunks")
	for _, ch := range chunks {
		assert.LessOrEqual(t, estimateTokens(ch.Text), 20*2, "split chunks should stay near budget even with overlap")
	}
}

func TestChunk_AssignsContiguousIndices(t *testing.T) {
	c := New(Config{MinChars: 10, ChunkTokens: 30})
	body := strings.Repeat("Chapter 2 introduces exercise problems for students. ", 10)
	pages := []domain.Page{{Source: "doc.pdf", PageIndex: 0, RawText: body}}

	chunks := c.Chunk(pages)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), ch.Metadata.TotalChunks)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestClassifyContentType(t *testing.T) {
	assert.Equal(t, domain.ContentProblem, classifyContentType("Exercise 4.2: solve for x"))
	assert.Equal(t, domain.ContentExample, classifyContentType("Example: consider the function f(x)"))
	assert.Equal(t, domain.ContentIntroduction, classifyContentType("Introduction to this chapter"))
	assert.Equal(t, domain.ContentExplanation, classifyContentType("The derivative measures instantaneous rate of change"))
}

func TestInferSubject(t *testing.T) {
	assert.Equal(t, "algebra", inferSubject("textbooks/Algebra_Grade9.pdf"))
	assert.Equal(t, "", inferSubject("misc_notes.pdf"))
}

func TestDigitRatio(t *testing.T) {
	assert.InDelta(t, 1.0, digitRatio("12345"), 0.001)
	assert.InDelta(t, 0.0, digitRatio("hello world"), 0.001)
}
