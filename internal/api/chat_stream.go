package api

import (
	"net/http"
	"time"

	"eduassist/internal/domain"
	"eduassist/internal/retrieval"
	"eduassist/internal/streaming"

	"github.com/gin-gonic/gin"
)

// ChatStream handles POST /chat/stream: runs a turn through the
// hybrid retrieval state machine and forwards its events as SSE
// frames, then applies the same session-append invariant as Chat:
// a completed turn appends user+assistant, a turn that erred before
// or during generation appends only the user message (spec §3, §7).
func (h *Handlers) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "message is required"})
		return
	}

	sessionID, unlock := h.Sessions.Lock(req.SessionID)
	defer unlock()
	history, _ := h.Sessions.History(sessionID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	var events <-chan retrieval.Event
	if req.UseRAG != nil && !*req.UseRAG {
		events = h.Machine.RunNoRetrieval(c.Request.Context(), req.Message, history)
	} else {
		events = h.Machine.Run(c.Request.Context(), req.Message, history)
	}

	result := streaming.Serve(c.Request.Context(), c, events)

	userMsg := domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: time.Now()}
	if result.Err != nil {
		h.Sessions.AppendUserOnly(sessionID, userMsg)
		return
	}
	if result.Answer == "" {
		// Caller disconnected before a done/error event arrived; do not
		// persist a partial turn (spec §7 cancellation case).
		return
	}
	assistantMsg := domain.Message{Role: domain.RoleAssistant, Content: result.Answer, Timestamp: time.Now()}
	h.Sessions.Append(sessionID, userMsg, assistantMsg)
}
