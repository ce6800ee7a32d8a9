package domain

import "errors"

// Ingestion errors. Per-file, non-fatal to a batch.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrOCRUnavailable    = errors.New("ocr subsystem unavailable")
)

// Retrieval-path errors. All are recovered locally by the state
// machine and reflected only as empty inputs to fusion.
var (
	ErrEmbeddingFailed         = errors.New("embedding provider failed")
	ErrVectorStoreFailed       = errors.New("vector store failed")
	ErrWebSearchFailed         = errors.New("web search failed")
	ErrRouteClassifierFailed   = errors.New("route classifier failed")
	ErrRetrievalDeadlineExceeded = errors.New("retrieval deadline exceeded")
)

// Generation errors are the only errors surfaced to the caller as a
// terminal error event.
var (
	ErrGenerationUnavailable  = errors.New("generation unavailable")
	ErrGenerationInterrupted = errors.New("generation interrupted")
)

// Session errors.
var ErrSessionNotFound = errors.New("session not found")
