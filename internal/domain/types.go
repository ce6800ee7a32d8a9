// Package domain holds the core types shared across ingestion and
// retrieval: documents, chunks, routes, sessions, and the ephemeral
// per-query agent state.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Page is one page of extracted text produced by the document loader.
type Page struct {
	Source     string
	PageIndex  int
	TotalPages int
	RawText    string
}

// ContentType classifies the pedagogical role of a chunk.
type ContentType string

const (
	ContentExplanation  ContentType = "explanation"
	ContentProblem      ContentType = "problem"
	ContentExample      ContentType = "example"
	ContentIntroduction ContentType = "introduction"
)

// Metadata enriches a Chunk with positional and classification data.
type Metadata struct {
	Source      string
	Page        int
	ChunkIndex  int
	TotalChunks int
	Subject     string
	Chapter     int
	HasChapter  bool
	Section     string
	ContentType ContentType
	HasMath     bool
}

// Chunk is the unit of retrieval: a span of chunked document text plus
// its embedding and enrichment metadata.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// RetrievedChunk pairs a Chunk with a relevance score in [0,1],
// higher is better, normalized by the vector repository regardless of
// its underlying distance metric.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}

// WebResult is one hit from the web search tool.
type WebResult struct {
	Title         string
	URL           string
	PublishedDate string
	Snippet       string
	Score         float64
}

// Route is the hybrid retrieval state machine's routing decision.
type Route string

const (
	RouteNone    Route = "NONE"
	RoutePDF     Route = "PDF_ONLY"
	RouteWeb     Route = "WEB_ONLY"
	RouteBoth    Route = "BOTH"
	RouteUnknown Route = ""
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn element in a Session's history.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Session is bounded, in-memory conversation state for one caller.
type Session struct {
	ID            string
	Messages      []Message
	CreatedAt     time.Time
	LastTouchedAt time.Time
}

// AgentState is the ephemeral, per-query working state threaded
// through the hybrid retrieval state machine. It is never persisted.
type AgentState struct {
	Query           string
	History         []Message
	Route           Route
	PDFSources      []RetrievedChunk
	WebSources      []WebResult
	CombinedContext string
	FinalAnswer     string
}

// ChunkID derives a stable chunk identifier from its source document
// and ordinal position, so re-ingesting the same document reproduces
// the same ids and upserts are idempotent (spec §3, §8).
func ChunkID(source string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, ordinal)))
	return hex.EncodeToString(sum[:16])
}

// IngestOutcome is the per-document result reported by the ingestion
// orchestrator for one submitted file.
type IngestOutcome struct {
	Source      string
	Pages       int
	ChunksAdded int
	OCRUsed     bool
	Err         error
}
