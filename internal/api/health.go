package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health: a liveness probe only, matching the
// teacher's unauthenticated health endpoint. It does not check
// downstream dependencies (vector store, Ollama); those surface as
// per-request errors instead.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
