package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"eduassist/internal/domain"
)

// DefaultContextCharBudget is CONTEXT_CHAR_BUDGET (spec §4.5.3).
const DefaultContextCharBudget = 16000

// fuse builds the combined_context string per spec §4.5.3: textbook
// sources first (descending score), then web sources (descending
// score), capped at charBudget. When over budget, web items are dropped
// first, lowest-ranked first, and textbook items only once no web item
// is left.
func fuse(pdf []domain.RetrievedChunk, web []domain.WebResult, charBudget int) string {
	if charBudget <= 0 {
		charBudget = DefaultContextCharBudget
	}

	pdfSorted := append([]domain.RetrievedChunk(nil), pdf...)
	sort.SliceStable(pdfSorted, func(i, j int) bool { return pdfSorted[i].Score > pdfSorted[j].Score })
	webSorted := append([]domain.WebResult(nil), web...)
	sort.SliceStable(webSorted, func(i, j int) bool { return webSorted[i].Score > webSorted[j].Score })

	var pdfBlock, webBlock strings.Builder
	if len(pdfSorted) > 0 {
		pdfBlock.WriteString("[TEXTBOOK SOURCES]\n")
		for i, rc := range pdfSorted {
			pdfBlock.WriteString(formatTextbookEntry(i+1, rc))
		}
	}
	if len(webSorted) > 0 {
		webBlock.WriteString("[WEB SOURCES]\n")
		for i, wr := range webSorted {
			webBlock.WriteString(formatWebEntry(i+1, wr))
		}
	}

	combined := pdfBlock.String() + webBlock.String()
	if len(combined) <= charBudget {
		return combined
	}
	return truncateFusedContext(pdfSorted, webSorted, charBudget)
}

func formatTextbookEntry(idx int, rc domain.RetrievedChunk) string {
	entry := fmt.Sprintf("(%d) %s  — source=%s, page=%d", idx, rc.Chunk.Text, rc.Chunk.Metadata.Source, rc.Chunk.Metadata.Page)
	if rc.Chunk.Metadata.HasChapter {
		entry += fmt.Sprintf(", chapter=%d", rc.Chunk.Metadata.Chapter)
	}
	return entry + "\n"
}

func formatWebEntry(idx int, wr domain.WebResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("(W%d) %s — %s", idx, wr.Title, wr.URL))
	if wr.PublishedDate != "" {
		sb.WriteString(" — " + wr.PublishedDate)
	}
	sb.WriteString("\n     " + wr.Snippet + "\n")
	return sb.String()
}

// truncateFusedContext drops the lowest-ranked items first until the
// fused string fits within charBudget.
func truncateFusedContext(pdf []domain.RetrievedChunk, web []domain.WebResult, charBudget int) string {
	for len(pdf) > 0 || len(web) > 0 {
		var pdfBlock, webBlock strings.Builder
		if len(pdf) > 0 {
			pdfBlock.WriteString("[TEXTBOOK SOURCES]\n")
			for i, rc := range pdf {
				pdfBlock.WriteString(formatTextbookEntry(i+1, rc))
			}
		}
		if len(web) > 0 {
			webBlock.WriteString("[WEB SOURCES]\n")
			for i, wr := range web {
				webBlock.WriteString(formatWebEntry(i+1, wr))
			}
		}
		combined := pdfBlock.String() + webBlock.String()
		if len(combined) <= charBudget {
			return combined
		}
		if len(web) > 0 {
			web = web[:len(web)-1]
		} else {
			pdf = pdf[:len(pdf)-1]
		}
	}
	return ""
}
