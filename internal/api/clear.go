package api

import (
	"errors"
	"net/http"

	"eduassist/internal/domain"

	"github.com/gin-gonic/gin"
)

// ClearSession handles DELETE /chat/clear/{id}.
func (h *Handlers) ClearSession(c *gin.Context) {
	id := c.Param("id")
	err := h.Sessions.Clear(id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"cleared": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"cleared": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// ClearVectorStore handles DELETE /clear-vector-store.
func (h *Handlers) ClearVectorStore(c *gin.Context) {
	removed, err := h.Vectors.DeleteAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"removed": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
