package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID_StableForSameSourceAndOrdinal(t *testing.T) {
	a := ChunkID("algebra.pdf", 3)
	b := ChunkID("algebra.pdf", 3)
	assert.Equal(t, a, b, "re-ingesting the same document must reproduce the same chunk id for idempotent upsert")
}

func TestChunkID_DiffersAcrossSourceOrOrdinal(t *testing.T) {
	assert.NotEqual(t, ChunkID("algebra.pdf", 3), ChunkID("algebra.pdf", 4))
	assert.NotEqual(t, ChunkID("algebra.pdf", 3), ChunkID("geometry.pdf", 3))
}
