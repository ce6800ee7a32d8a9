// Package chunker splits page text into overlapping, token-bounded,
// sentence-aware chunks and enriches each with chapter/section/subject
// and content-type metadata. Chunking is a pure function of its input
// pages and the Config it is constructed with.
package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"eduassist/internal/domain"
)

// Config holds the chunker's size target and quality filter, mirroring
// the CHUNK_TOKENS/CHUNK_OVERLAP_TOKENS/MIN_CHARS/MAX_DIGIT_RATIO
// environment table entries.
type Config struct {
	ChunkTokens        int
	ChunkOverlapTokens int
	MinChars           int
	MaxDigitRatio      float64
}

// Chunker turns a document's pages into quality-filtered, metadata
// enriched chunks.
type Chunker struct {
	cfg Config
}

// New constructs a Chunker for the given size and quality targets.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg}
}

// separators is the priority-ordered cascade: paragraph break, line
// break, sentence terminators, clause separators, space, character.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

var (
	chapterRe     = regexp.MustCompile(`(?i)chapter\s+(\d+)`)
	sectionRe     = regexp.MustCompile(`(?m)^\s*(\d+\.\d+)\s+(.+?)\s*$`)
	mathRe        = regexp.MustCompile(`\\frac|\\sum|\\int|[√∞π]|\d+\s*\^\s*\d+|[a-zA-Z0-9]\s*/\s*[a-zA-Z0-9]|\\[a-zA-Z]+\{`)
	problemKwRe   = regexp.MustCompile(`(?i)exercise|problem|question`)
	exampleKwRe   = regexp.MustCompile(`(?i)example|Ex\.\s`)
	introKwRe     = regexp.MustCompile(`(?i)introduction|chapter`)
	digitClassRe  = regexp.MustCompile(`[0-9]`)
	alnumClassRe  = regexp.MustCompile(`[a-zA-Z0-9]`)
	subjectHintRe = regexp.MustCompile(`(?i)(algebra|geometry|calculus|physics|chemistry|biology|history|economics)`)
)

// pageSpan is a back-map entry: the chunked-text offset at which a
// page's contribution begins.
type pageSpan struct {
	start int
	page  int
}

// Chunk splits the given pages into quality-filtered, enriched chunks.
// Pages are concatenated in order with a per-character back-map so
// each output chunk inherits the page of its first character.
func (c *Chunker) Chunk(pages []domain.Page) []domain.Chunk {
	if len(pages) == 0 {
		return nil
	}

	source := pages[0].Source
	var sb strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	for _, p := range pages {
		spans = append(spans, pageSpan{start: sb.Len(), page: p.PageIndex})
		sb.WriteString(p.RawText)
		sb.WriteString("\n\n")
	}
	full := sb.String()

	raw := c.split(full, c.tokenBudget())
	subject := inferSubject(source)

	var out []domain.Chunk
	for _, span := range raw {
		text := strings.TrimSpace(span.text)
		if !c.passesQuality(text) {
			continue
		}
		meta := domain.Metadata{
			Source:  source,
			Page:    pageForOffset(spans, span.offset),
			Subject: subject,
			HasMath: mathRe.MatchString(text),
		}
		meta.ContentType = classifyContentType(text)
		if m := chapterRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				meta.Chapter = n
				meta.HasChapter = true
			}
		}
		if m := sectionRe.FindStringSubmatch(text); m != nil {
			meta.Section = m[1]
		}
		out = append(out, domain.Chunk{
			Text:     text,
			Metadata: meta,
		})
	}

	total := len(out)
	for i := range out {
		out[i].Metadata.ChunkIndex = i
		out[i].Metadata.TotalChunks = total
		out[i].ID = domain.ChunkID(source, i)
	}
	return out
}

func (c *Chunker) tokenBudget() int {
	if c.cfg.ChunkTokens <= 0 {
		return 800
	}
	return c.cfg.ChunkTokens
}

func (c *Chunker) overlapTokens() int {
	if c.cfg.ChunkOverlapTokens <= 0 {
		return 100
	}
	return c.cfg.ChunkOverlapTokens
}

func (c *Chunker) passesQuality(text string) bool {
	minChars := c.cfg.MinChars
	if minChars <= 0 {
		minChars = 100
	}
	maxDigitRatio := c.cfg.MaxDigitRatio
	if maxDigitRatio <= 0 {
		maxDigitRatio = 0.5
	}
	if len(text) < minChars {
		return false
	}
	return digitRatio(text) <= maxDigitRatio
}

// digitRatio measures digits over alphanumerics, per spec §3.
func digitRatio(text string) float64 {
	alnum := len(alnumClassRe.FindAllString(text, -1))
	if alnum == 0 {
		return 0
	}
	digits := len(digitClassRe.FindAllString(text, -1))
	return float64(digits) / float64(alnum)
}

// estimateTokens is the byte-pair-style fallback from spec §4.2:
// tokens ≈ chars / 4 when no tokenizer is available.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

type rawChunk struct {
	text   string
	offset int
}

// split recursively descends the separator cascade, only splitting a
// segment further when it would exceed the token budget, and prepends
// overlap at a sentence boundary where one falls within the overlap
// window.
func (c *Chunker) split(text string, budget int) []rawChunk {
	segments := recursiveSplit(text, separators, budget)

	overlapBudget := c.overlapTokens()
	out := make([]rawChunk, 0, len(segments))
	offset := 0
	searchFrom := 0
	var prevTail string
	for i, seg := range segments {
		piece := seg
		if i > 0 && overlapBudget > 0 && prevTail != "" {
			piece = prevTail + piece
		}
		idx := strings.Index(text[searchFrom:], seg)
		pos := offset
		if idx >= 0 {
			pos = searchFrom + idx
		}
		out = append(out, rawChunk{text: piece, offset: pos})
		searchFrom = pos + len(seg)
		offset = searchFrom
		prevTail = overlapTail(seg, overlapBudget)
	}
	return out
}

// overlapTail returns the tail of seg to prepend to the next chunk,
// cut at a sentence boundary within the overlap window when one
// exists.
func overlapTail(seg string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	overlapChars := overlapTokens * 4
	if overlapChars >= len(seg) {
		return seg
	}
	tail := seg[len(seg)-overlapChars:]
	if idx := strings.LastIndexAny(tail, ".!?"); idx >= 0 && idx+1 < len(tail) {
		return strings.TrimSpace(tail[idx+1:]) + " "
	}
	return tail
}

// recursiveSplit implements the priority-ordered separator cascade.
func recursiveSplit(text string, seps []string, budget int) []string {
	if estimateTokens(text) <= budget || len(seps) == 0 {
		return []string{text}
	}

	sep := seps[0]
	rest := seps[1:]

	if sep == "" {
		// Character-level split, last resort.
		budgetChars := budget * 4
		var out []string
		for i := 0; i < len(text); i += budgetChars {
			end := i + budgetChars
			if end > len(text) {
				end = len(text)
			}
			out = append(out, text[i:end])
		}
		return out
	}

	if !strings.Contains(text, sep) {
		return recursiveSplit(text, rest, budget)
	}

	parts := strings.Split(text, sep)
	var merged []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			merged = append(merged, current.String())
			current.Reset()
		}
	}
	for i, part := range parts {
		candidate := part
		if current.Len() > 0 {
			candidate = current.String() + sep + part
		}
		if estimateTokens(candidate) > budget && current.Len() > 0 {
			flush()
			current.WriteString(part)
		} else {
			current.Reset()
			current.WriteString(candidate)
		}
		if i == len(parts)-1 {
			flush()
		}
	}

	var out []string
	for _, m := range merged {
		if estimateTokens(m) > budget {
			out = append(out, recursiveSplit(m, rest, budget)...)
		} else {
			out = append(out, m)
		}
	}
	return out
}

func pageForOffset(spans []pageSpan, offset int) int {
	page := spans[0].page
	for _, s := range spans {
		if s.start > offset {
			break
		}
		page = s.page
	}
	return page
}

func classifyContentType(text string) domain.ContentType {
	switch {
	case problemKwRe.MatchString(text):
		return domain.ContentProblem
	case exampleKwRe.MatchString(text):
		return domain.ContentExample
	case introKwRe.MatchString(text):
		return domain.ContentIntroduction
	default:
		return domain.ContentExplanation
	}
}

func inferSubject(source string) string {
	if m := subjectHintRe.FindString(source); m != "" {
		return strings.ToLower(m)
	}
	return ""
}
