package loader

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"eduassist/internal/domain"

	"github.com/otiai10/gosseract/v2"
)

// ocrEngine wraps the OCR subsystem: poppler's pdftoppm rasterizes
// pages to images at the required DPI (the Go equivalent of
// ocr_document_loader.py's pdf2image.convert_from_path), and
// gosseract recognizes text in each image. Both binaries are probed
// once at construction time.
type ocrEngine struct {
	pdftoppmPath string
}

// probeOCR checks for the OCR subsystem's external dependencies once.
// Auto-detection happens here, at construction time, never as a
// runtime branch on a global (spec §9).
func probeOCR() *ocrEngine {
	pdftoppm, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil
	}
	client := gosseract.NewClient()
	defer client.Close()
	if _, err := client.GetAvailableLanguages(); err != nil {
		return nil
	}
	return &ocrEngine{pdftoppmPath: pdftoppm}
}

const ocrDPI = 200

// ocrPages rasterizes each page of the document to an image at
// ocrDPI and recognizes its text, replacing the extracted (near-empty)
// text with the OCR result. Rasterization is a single pdftoppm run
// over the whole document; if it fails, the whole document fails with
// an error. A page whose recognition fails keeps its directly
// extracted text; that failure is not logged.
func (l *Loader) ocrPages(sourcePath string, raw []byte, pages []domain.Page) ([]domain.Page, error) {
	dir, err := os.MkdirTemp("", "eduassist-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("loader: ocr temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "source.pdf")
	if err := os.WriteFile(pdfPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("loader: ocr write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	cmd := exec.Command(l.ocr.pdftoppmPath, "-r", fmt.Sprintf("%d", ocrDPI), "-png", pdfPath, prefix)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("loader: rasterize: %w", err)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("loader: glob rasterized pages: %w", err)
	}
	sort.Strings(images)

	client := gosseract.NewClient()
	defer client.Close()

	out := make([]domain.Page, len(pages))
	copy(out, pages)
	for i, imgPath := range images {
		if i >= len(out) {
			break
		}
		text, err := recognize(client, imgPath)
		if err != nil {
			// Not logged; the page keeps its directly extracted text.
			continue
		}
		out[i].RawText = text
	}
	return out, nil
}

func recognize(client *gosseract.Client, imgPath string) (string, error) {
	if err := client.SetImage(imgPath); err != nil {
		return "", fmt.Errorf("ocr: set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}
	return text, nil
}
