package api

import (
	"io"
	"net/http"

	"eduassist/internal/ingest"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type uploadFileResult struct {
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks_added"`
	OCRUsed  bool   `json:"ocr_used"`
	Error    string `json:"error,omitempty"`
}

type uploadResponse struct {
	Status string `json:"status"`
	Details struct {
		FilesProcessed int      `json:"files_processed"`
		TotalChunks    int      `json:"total_chunks"`
		Filenames      []string `json:"filenames"`
	} `json:"details"`
	Files []uploadFileResult `json:"files"`
}

// UploadPDF handles POST /upload-pdf: a multipart "files" upload,
// grounded on xxxsen-mnote's FileHandler.Upload c.FormFile pattern.
// Per-file failures do not abort the batch; the overall response is
// 200 as long as at least one file succeeded (spec §7).
func (h *Handlers) UploadPDF(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "multipart form required"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no files provided"})
		return
	}

	var inputs []ingest.Input
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			continue
		}
		inputs = append(inputs, ingest.Input{Source: fh.Filename, Bytes: raw})
	}

	outcomes := h.Ingest.IngestBatch(c.Request.Context(), inputs)

	resp := uploadResponse{Status: "ok"}
	succeeded := 0
	for _, o := range outcomes {
		fr := uploadFileResult{Filename: o.Source, Pages: o.Pages, Chunks: o.ChunksAdded, OCRUsed: o.OCRUsed}
		if o.Err != nil {
			fr.Error = o.Err.Error()
			h.Log.Warn("upload-pdf: file failed", zap.String("source", o.Source), zap.Error(o.Err))
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
