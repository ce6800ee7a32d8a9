package api

import (
	"net/http"

	"eduassist/internal/vectorstore"

	"github.com/gin-gonic/gin"
)

type queryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type queryResult struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Query handles POST /query: a direct C4 lookup bypassing the routing
// state machine entirely, for callers that want raw retrieved chunks
// rather than a generated answer.
func (h *Handlers) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "query is required"})
		return
	}
	k := req.K
	if k <= 0 {
		k = 4
	}

	vec, err := h.Embedder.EmbedText(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusOK, []queryResult{})
		return
	}
	results, err := h.Vectors.Search(c.Request.Context(), vec, k, vectorstore.Filter{})
	if err != nil {
		c.JSON(http.StatusOK, []queryResult{})
		return
	}

	out := make([]queryResult, 0, len(results))
	for _, rc := range results {
		out = append(out, queryResult{
			Content: rc.Chunk.Text,
			Metadata: map[string]interface{}{
				"source": rc.Chunk.Metadata.Source,
				"page":   rc.Chunk.Metadata.Page,
				"score":  rc.Score,
			},
		})
	}
	c.JSON(http.StatusOK, out)
}
