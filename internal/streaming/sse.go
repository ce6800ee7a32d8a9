// Package streaming is the Streaming Adapter (C8): it converts the
// hybrid retrieval state machine's event channel into the
// Server-Sent-Event framing of spec §6/§4.7, served over gin's
// http.Flusher. No pack repo performs SSE itself; http.Flusher is the
// one unavoidable stdlib primitive for that mechanical piece (see
// DESIGN.md).
package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"eduassist/internal/retrieval"

	"github.com/gin-gonic/gin"
)

// frame is the wire shape of one SSE event's JSON payload (spec §6).
type frame struct {
	Type       string          `json:"type"`
	Content    string          `json:"content,omitempty"`
	PDFSources []sourceView    `json:"pdf_sources,omitempty"`
	RouteUsed  string          `json:"route_used,omitempty"`
	Message    string          `json:"message,omitempty"`
	Web        []webSourceView `json:"web_sources,omitempty"`
}

type sourceView struct {
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

type webSourceView struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	PublishedDate string  `json:"published_date,omitempty"`
	Snippet       string  `json:"snippet"`
	Score         float64 `json:"score"`
}

// Result is returned once the stream finishes, letting the caller
// decide how to update session history: Answer is the concatenation
// of every chunk delta, set only when the done event arrives (it stays
// empty after an error or a disconnect); Err is non-nil when the turn ended in an
// error event, in which case no assistant message should be persisted
// (spec §3 invariant, §7).
type Result struct {
	Answer  string
	Sources *retrieval.Sources
	Err     error
}

// Serve drains events, writing one SSE frame per event to w and
// flushing after each write so the caller sees data incrementally. It
// honors the request context: if the caller disconnects, ctx.Done()
// fires and Serve returns at once without writing further frames; any
// events still on the channel are not read.
func Serve(ctx context.Context, c *gin.Context, events <-chan retrieval.Event) Result {
	w := c.Writer
	flusher, _ := w.(http.Flusher)

	var answer string
	var result Result

	for {
		select {
		case <-ctx.Done():
			return result
		case ev, ok := <-events:
			if !ok {
				return result
			}
			switch ev.Kind {
			case retrieval.EventChunk:
				answer += ev.Content
				writeFrame(w, flusher, frame{Type: "chunk", Content: ev.Content})
			case retrieval.EventSources:
				result.Sources = ev.Sources
				writeFrame(w, flusher, sourcesFrame(ev.Sources))
			case retrieval.EventDone:
				result.Answer = answer
				writeFrame(w, flusher, frame{Type: "done"})
				return result
			case retrieval.EventError:
				result.Err = fmt.Errorf("%s", ev.Message)
				writeFrame(w, flusher, frame{Type: "error", Message: ev.Message})
				return result
			}
		}
	}
}

func sourcesFrame(s *retrieval.Sources) frame {
	if s == nil {
		return frame{Type: "sources", RouteUsed: ""}
	}
	pdf := make([]sourceView, 0, len(s.PDFSources))
	for _, rc := range s.PDFSources {
		pdf = append(pdf, sourceView{
			Text:  rc.Chunk.Text,
			Score: rc.Score,
			Metadata: map[string]interface{}{
				"source": rc.Chunk.Metadata.Source,
				"page":   rc.Chunk.Metadata.Page,
				"chapter": func() interface{} {
					if rc.Chunk.Metadata.HasChapter {
						return rc.Chunk.Metadata.Chapter
					}
					return nil
				}(),
				"section":      rc.Chunk.Metadata.Section,
				"content_type": rc.Chunk.Metadata.ContentType,
			},
		})
	}
	web := make([]webSourceView, 0, len(s.WebSources))
	for _, wr := range s.WebSources {
		web = append(web, webSourceView{
			Title:         wr.Title,
			URL:           wr.URL,
			PublishedDate: wr.PublishedDate,
			Snippet:       wr.Snippet,
			Score:         wr.Score,
		})
	}
	return frame{Type: "sources", PDFSources: pdf, Web: web, RouteUsed: string(s.RouteUsed)}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, f frame) {
	body, err := json.Marshal(f)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
	if flusher != nil {
		flusher.Flush()
	}
}
