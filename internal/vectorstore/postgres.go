// Package vectorstore is the Vector Repository (C4): a persistent,
// Postgres + pgvector backed collection supporting idempotent upsert,
// similarity search with metadata filtering, size, and purge.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"eduassist/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows a similarity search to chunks matching the given
// subject, when non-empty (spec §4.5.2: "optionally filtered by
// inferred subject").
type Filter struct {
	Subject string
}

// Store is a Postgres + pgvector backed Vector Repository. A
// sync.RWMutex gives the multi-reader/single-writer discipline spec
// §4.3/§5 requires on top of pgx's own connection pooling: Add and
// DeleteAll take the write lock, Search takes the read lock.
type Store struct {
	pool *pgxpool.Pool
	mu   sync.RWMutex
	dim  int
}

// New connects to Postgres and ensures the chunks table and its
// pgvector index exist, grounded on the teacher's NewDB+Initialize
// pair in internal/database/postgres.go.
func New(ctx context.Context, connStr string, dimension int) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("vectorstore: ping: %w", err)
	}

	s := &Store{pool: pool, dim: dimension}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			source TEXT NOT NULL,
			page INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			subject TEXT,
			chapter INTEGER,
			has_chapter BOOLEAN,
			section TEXT,
			content_type TEXT,
			has_math BOOLEAN,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		)`, s.dim))
	if err != nil {
		return fmt.Errorf("vectorstore: create table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
		CREATE INDEX IF NOT EXISTS chunks_source_idx ON chunks (source);
		CREATE INDEX IF NOT EXISTS chunks_subject_idx ON chunks (subject);
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: create indices: %w", err)
	}
	return nil
}

// Add upserts chunks, idempotent on chunk id: re-ingesting the same
// document does not duplicate rows (spec's resolved Open Question on
// duplicate-chunk semantics, §9).
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := &pgx.Batch{}
	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("vectorstore: marshal metadata: %w", err)
		}
		vec := toPgvector(c.Embedding)
		batch.Queue(`
			INSERT INTO chunks (
				id, text, source, page, chunk_index, total_chunks,
				subject, chapter, has_chapter, section, content_type,
				has_math, metadata, embedding
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				source = EXCLUDED.source,
				page = EXCLUDED.page,
				chunk_index = EXCLUDED.chunk_index,
				total_chunks = EXCLUDED.total_chunks,
				subject = EXCLUDED.subject,
				chapter = EXCLUDED.chapter,
				has_chapter = EXCLUDED.has_chapter,
				section = EXCLUDED.section,
				content_type = EXCLUDED.content_type,
				has_math = EXCLUDED.has_math,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding
		`, c.ID, c.Text, c.Metadata.Source, c.Metadata.Page, c.Metadata.ChunkIndex,
			c.Metadata.TotalChunks, c.Metadata.Subject, c.Metadata.Chapter, c.Metadata.HasChapter,
			c.Metadata.Section, string(c.Metadata.ContentType), c.Metadata.HasMath, meta, vec)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("vectorstore: upsert chunk: %w", err)
		}
	}
	return nil
}

// Search runs a cosine-similarity search, normalizing the pgvector
// cosine distance (`<=>`) to a [0,1] higher-is-better score: score =
// 1 - distance. This resolves the spec's Open Question on relevance
// scale at the repository boundary (§9).
func (s *Store) Search(ctx context.Context, queryVector []float32, k int, filter Filter) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vec := toPgvector(queryVector)
	var rows pgx.Rows
	var err error
	if filter.Subject != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, text, source, page, chunk_index, total_chunks,
			       subject, chapter, has_chapter, section, content_type, has_math,
			       1 - (embedding <=> $1) AS score
			FROM chunks
			WHERE subject = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, vec, filter.Subject, k)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, text, source, page, chunk_index, total_chunks,
			       subject, chapter, has_chapter, section, content_type, has_math,
			       1 - (embedding <=> $1) AS score
			FROM chunks
			ORDER BY embedding <=> $1
			LIMIT $2`, vec, k)
	}
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		var contentType string
		if err := rows.Scan(
			&rc.Chunk.ID, &rc.Chunk.Text, &rc.Chunk.Metadata.Source, &rc.Chunk.Metadata.Page,
			&rc.Chunk.Metadata.ChunkIndex, &rc.Chunk.Metadata.TotalChunks, &rc.Chunk.Metadata.Subject,
			&rc.Chunk.Metadata.Chapter, &rc.Chunk.Metadata.HasChapter, &rc.Chunk.Metadata.Section,
			&contentType, &rc.Chunk.Metadata.HasMath, &rc.Score,
		); err != nil {
			return nil, fmt.Errorf("vectorstore: scan row: %w", err)
		}
		rc.Chunk.Metadata.ContentType = domain.ContentType(contentType)
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: iterate rows: %w", err)
	}
	return out, nil
}

// Size reports the number of chunks currently stored.
func (s *Store) Size(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vectorstore: size: %w", err)
	}
	return n, nil
}

// DeleteAll purges the entire collection, returning the count removed.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks`)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: delete all: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func toPgvector(v []float32) string {
	b := make([]byte, 0, len(v)*8+2)
	b = append(b, '[')
	for i, f := range v {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, []byte(fmt.Sprintf("%g", f))...)
	}
	b = append(b, ']')
	return string(b)
}
