// Package ingest is the Ingestion Orchestrator (C9): it drives
// C1 (loader) -> C2 (chunker) -> C3 (embedder, batched and bounded
// concurrency) -> C4 (vector repository) for a batch of input
// documents, and reports a per-file outcome. Grounded on the
// teacher's cmd/indexer/indexer.go (EmbedBatchWithProgress, per-file
// progress reporting), with the concurrency primitive upgraded from
// the teacher's hand-rolled sync.WaitGroup+channel semaphore to
// golang.org/x/sync/semaphore.Weighted.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"eduassist/internal/chunker"
	"eduassist/internal/domain"
	"eduassist/internal/embedding"
	"eduassist/internal/loader"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// VectorRepository is the subset of C4 the orchestrator needs.
type VectorRepository interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
}

// Orchestrator drives ingestion for a batch of documents.
type Orchestrator struct {
	loader   *loader.Loader
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	vectors  VectorRepository
	log      *zap.Logger

	embedBatch       int
	embedConcurrency int
}

// Config tunes EMBED_BATCH/EMBED_CONCURRENCY (spec §6).
type Config struct {
	EmbedBatch       int
	EmbedConcurrency int
}

// New constructs an Orchestrator.
func New(l *loader.Loader, c *chunker.Chunker, e embedding.Embedder, v VectorRepository, log *zap.Logger, cfg Config) *Orchestrator {
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 64
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}
	return &Orchestrator{
		loader: l, chunker: c, embedder: e, vectors: v, log: log,
		embedBatch: cfg.EmbedBatch, embedConcurrency: cfg.EmbedConcurrency,
	}
}

// Input is one submitted document.
type Input struct {
	Source string
	Bytes  []byte
}

// IngestBatch runs C1->C2 for every input, embeds all surviving
// chunks across the whole batch in bounded-concurrency batches, and
// calls C4.Add. A single document failing does not abort the batch;
// the orchestrator reports partial success (spec §4.8, §7).
func (o *Orchestrator) IngestBatch(ctx context.Context, inputs []Input) []domain.IngestOutcome {
	sources := make([]string, len(inputs))
	pagesBySource := make([][]domain.Page, len(inputs))
	loadErrs := make([]error, len(inputs))
	ocrUsed := make([]bool, len(inputs))

	for i, in := range inputs {
		sources[i] = in.Source
		pages, used, err := o.loader.Load(in.Source, in.Bytes)
		ocrUsed[i] = used
		if err != nil {
			loadErrs[i] = err
			o.log.Warn("ingest: load failed", zap.String("source", in.Source), zap.Error(err))
			continue
		}
		pagesBySource[i] = pages
	}

	return o.ingestPages(ctx, sources, pagesBySource, loadErrs, ocrUsed)
}

// IngestPagesBatch ingests already-extracted page text, bypassing C1
// (the document loader). Used by the /process-webpages surface, which
// fetches and strips markup itself rather than reusing the PDF
// extraction path.
func (o *Orchestrator) IngestPagesBatch(ctx context.Context, pages []NamedText) []domain.IngestOutcome {
	sources := make([]string, len(pages))
	pagesBySource := make([][]domain.Page, len(pages))
	loadErrs := make([]error, len(pages))
	ocrUsed := make([]bool, len(pages))
	for i, p := range pages {
		sources[i] = p.Source
		pagesBySource[i] = []domain.Page{{Source: p.Source, PageIndex: 0, TotalPages: 1, RawText: p.Text}}
	}
	return o.ingestPages(ctx, sources, pagesBySource, loadErrs, ocrUsed)
}

// NamedText is pre-extracted, single-page document text.
type NamedText struct {
	Source string
	Text   string
}

func (o *Orchestrator) ingestPages(ctx context.Context, sources []string, pagesBySource [][]domain.Page, loadErrs []error, ocrUsed []bool) []domain.IngestOutcome {
	outcomes := make([]domain.IngestOutcome, len(sources))
	var allChunks []domain.Chunk
	chunkOwner := make([]int, 0)

	for i, pages := range pagesBySource {
		if loadErrs[i] != nil {
			outcomes[i] = domain.IngestOutcome{Source: sources[i], Err: loadErrs[i]}
			continue
		}
		chunks := o.chunker.Chunk(pages)
		outcomes[i] = domain.IngestOutcome{
			Source:  sources[i],
			Pages:   len(pages),
			OCRUsed: ocrUsed[i],
		}
		for range chunks {
			chunkOwner = append(chunkOwner, i)
		}
		allChunks = append(allChunks, chunks...)
	}

	if len(allChunks) == 0 {
		return outcomes
	}

	if err := o.embedAll(ctx, allChunks); err != nil {
		// Embedding failure degrades to an empty PDF index contribution
		// for the affected documents; report it against each owner.
		for _, owner := range chunkOwner {
			if outcomes[owner].Err == nil {
				outcomes[owner].Err = fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
			}
		}
		return outcomes
	}

	added := make(map[int]int)
	var toStore []domain.Chunk
	for i, c := range allChunks {
		owner := chunkOwner[i]
		if outcomes[owner].Err != nil {
			continue
		}
		toStore = append(toStore, c)
		added[owner]++
	}

	if err := o.vectors.Add(ctx, toStore); err != nil {
		for owner := range added {
			outcomes[owner].Err = fmt.Errorf("%w: %v", domain.ErrVectorStoreFailed, err)
		}
		return outcomes
	}

	for owner, n := range added {
		outcomes[owner].ChunksAdded = n
	}
	return outcomes
}

// embedAll embeds chunks in place, in batches of embedBatch with
// bounded concurrency embedConcurrency, matching EMBED_BATCH/
// EMBED_CONCURRENCY (spec §6, §4.8).
func (o *Orchestrator) embedAll(ctx context.Context, chunks []domain.Chunk) error {
	if o.embedder == nil {
		return errEmbeddingUnavailable
	}
	sem := semaphore.NewWeighted(int64(o.embedConcurrency))
	errs := make(chan error, (len(chunks)/o.embedBatch)+1)
	var pending int

	for start := 0; start < len(chunks); start += o.embedBatch {
		end := start + o.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		pending++
		go func(batch []domain.Chunk) {
			defer sem.Release(1)
			for i := range batch {
				vec, err := o.embedder.EmbedText(ctx, batch[i].Text)
				if err != nil {
					errs <- fmt.Errorf("embed chunk %s: %w", batch[i].ID, err)
					return
				}
				batch[i].Embedding = vec
			}
			errs <- nil
		}(batch)
	}

	if err := sem.Acquire(ctx, int64(o.embedConcurrency)); err != nil {
		return err
	}

	var firstErr error
	for i := 0; i < pending; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var errEmbeddingUnavailable = errors.New("embedder not configured")
