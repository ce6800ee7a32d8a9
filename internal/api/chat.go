package api

import (
	"net/http"
	"time"

	"eduassist/internal/domain"
	"eduassist/internal/retrieval"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UseRAG    *bool  `json:"use_rag"`
}

type chatResponse struct {
	Response  string           `json:"response"`
	SessionID string           `json:"session_id"`
	Sources   *chatSourcesView `json:"sources,omitempty"`
}

type chatSourcesView struct {
	PDFSources []map[string]interface{} `json:"pdf_sources"`
	WebSources []map[string]interface{} `json:"web_sources"`
	RouteUsed  string                    `json:"route_used"`
}

// runTurn resolves the session, starts the state machine, drains its
// events directly (no SSE framing), appends the turn to
// session history per the §3 invariant, and returns the accumulated
// answer and sources. Shared by the non-streaming /chat handler; the
// streaming handler uses streaming.Serve directly instead since it
// must write frames as they're produced.
func (h *Handlers) runTurn(c *gin.Context, req chatRequest) (string, string, *retrieval.Sources, error) {
	sessionID, unlock := h.Sessions.Lock(req.SessionID)
	defer unlock()
	history, _ := h.Sessions.History(sessionID)

	var events <-chan retrieval.Event
	if req.UseRAG != nil && !*req.UseRAG {
		events = h.Machine.RunNoRetrieval(c.Request.Context(), req.Message, history)
	} else {
		events = h.Machine.Run(c.Request.Context(), req.Message, history)
	}

	var answer string
	var sources *retrieval.Sources
	var runErr error

	for ev := range events {
		switch ev.Kind {
		case retrieval.EventChunk:
			answer += ev.Content
		case retrieval.EventSources:
			sources = ev.Sources
		case retrieval.EventError:
			runErr = errString(ev.Message)
		}
	}

	now := time.Now()
	userMsg := domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: now}
	if runErr != nil {
		h.Sessions.AppendUserOnly(sessionID, userMsg)
		return sessionID, "", nil, runErr
	}
	assistantMsg := domain.Message{Role: domain.RoleAssistant, Content: answer, Timestamp: time.Now()}
	h.Sessions.Append(sessionID, userMsg, assistantMsg)
	return sessionID, answer, sources, nil
}

// Chat handles POST /chat: a non-streaming turn returning the full
// answer once generation completes.
func (h *Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "message is required"})
		return
	}

	sessionID, answer, sources, err := h.runTurn(c, req)
	if err != nil {
		c.JSON(http.StatusOK, chatResponse{Response: err.Error(), SessionID: sessionID})
		return
	}

	resp := chatResponse{Response: answer, SessionID: sessionID}
	if sources != nil {
		resp.Sources = toSourcesView(sources)
	}
	c.JSON(http.StatusOK, resp)
}

func toSourcesView(s *retrieval.Sources) *chatSourcesView {
	pdf := make([]map[string]interface{}, 0, len(s.PDFSources))
	for _, rc := range s.PDFSources {
		pdf = append(pdf, map[string]interface{}{
			"text":   rc.Chunk.Text,
			"score":  rc.Score,
			"source": rc.Chunk.Metadata.Source,
			"page":   rc.Chunk.Metadata.Page,
		})
	}
	web := make([]map[string]interface{}, 0, len(s.WebSources))
	for _, wr := range s.WebSources {
		web = append(web, map[string]interface{}{
			"title":   wr.Title,
			"url":     wr.URL,
			"snippet": wr.Snippet,
			"score":   wr.Score,
		})
	}
	return &chatSourcesView{PDFSources: pdf, WebSources: web, RouteUsed: string(s.RouteUsed)}
}

type plainError string

func (e plainError) Error() string { return string(e) }

func errString(msg string) error { return plainError(msg) }
