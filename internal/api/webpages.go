package api

import (
	"io"
	"net/http"
	"regexp"
	"time"

	"eduassist/internal/ingest"

	"github.com/gin-gonic/gin"
)

type processWebpagesRequest struct {
	URLs []string `json:"urls"`
}

var htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// ProcessWebpages handles POST /process-webpages: fetches each URL,
// strips markup, and ingests the resulting text through the C2->C3->C4
// pipeline, bypassing C1 (the PDF loader) since the text is already
// extracted. Response shape matches /upload-pdf.
func (h *Handlers) ProcessWebpages(c *gin.Context) {
	var req processWebpagesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "urls is required"})
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var pages []ingest.NamedText
	for _, url := range req.URLs {
		resp, err := client.Get(url)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		text := htmlTagRe.ReplaceAllString(string(body), " ")
		pages = append(pages, ingest.NamedText{Source: url, Text: text})
	}

	outcomes := h.Ingest.IngestPagesBatch(c.Request.Context(), pages)

	resp := uploadResponse{Status: "ok"}
	succeeded := 0
	for _, o := range outcomes {
		fr := uploadFileResult{Filename: o.Source, Pages: o.Pages, Chunks: o.ChunksAdded}
		if o.Err != nil {
			fr.Error = o.Err.Error()
		} else {
			succeeded++
		}
		resp.Files = append(resp.Files, fr)
		resp.Details.FilesProcessed++
		resp.Details.TotalChunks += o.ChunksAdded
		resp.Details.Filenames = append(resp.Details.Filenames, o.Source)
	}
	if succeeded == 0 && len(outcomes) > 0 {
		resp.Status = "error"
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
