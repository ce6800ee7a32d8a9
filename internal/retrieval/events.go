package retrieval

import "eduassist/internal/domain"

// EventKind discriminates the Streaming Adapter's (C8) framed event
// types, per spec §4.7: zero or more chunk, exactly one sources, then
// exactly one terminal done or error.
type EventKind string

const (
	EventChunk   EventKind = "chunk"
	EventSources EventKind = "sources"
	EventDone    EventKind = "done"
	EventError   EventKind = "error"
)

// Event is one item on the turn's event channel.
type Event struct {
	Kind    EventKind
	Content string // set on EventChunk
	Sources *Sources
	Message string // set on EventError
}

// Sources summarizes a turn's attributed sources, emitted once after
// all chunk events and before the terminal event.
type Sources struct {
	PDFSources []domain.RetrievedChunk
	WebSources []domain.WebResult
	RouteUsed  domain.Route
}
