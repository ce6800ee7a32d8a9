package api

import (
	"errors"
	"net/http"

	"eduassist/internal/domain"

	"github.com/gin-gonic/gin"
)

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History handles GET /chat/history/{id}.
func (h *Handlers) History(c *gin.Context) {
	id := c.Param("id")
	messages, err := h.Sessions.History(id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	out := make([]historyMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, historyMessage{Role: string(m.Role), Content: m.Content})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}
