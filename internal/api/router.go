// Package api is the thin HTTP adapter (out of scope per spec §1,
// reference-mapped in spec §6): it turns gin requests into calls
// against the ingestion orchestrator, the hybrid retrieval state
// machine, and the session manager, and serializes their results to
// the wire shapes spec §6's table names. Grounded on xxxsen-mnote's
// internal/handler package layout (one handler struct per resource
// area, a single RegisterRoutes entry point) and gin-contrib/gzip for
// non-streaming JSON responses.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine for the HTTP surface in spec §6.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	jsonGroup := r.Group("/")
	jsonGroup.Use(gzip.Gzip(gzip.DefaultCompression))
	jsonGroup.POST("/upload-pdf", h.UploadPDF)
	jsonGroup.POST("/process-webpages", h.ProcessWebpages)
	jsonGroup.POST("/chat", h.Chat)
	jsonGroup.POST("/query", h.Query)
	jsonGroup.GET("/chat/history/:id", h.History)
	jsonGroup.DELETE("/chat/clear/:id", h.ClearSession)
	jsonGroup.DELETE("/clear-vector-store", h.ClearVectorStore)

	// Streaming is never gzipped: SSE frames must reach the caller as
	// they are produced.
	r.POST("/chat/stream", h.ChatStream)

	return r
}
