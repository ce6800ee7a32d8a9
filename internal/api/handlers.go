package api

import (
	"eduassist/internal/embedding"
	"eduassist/internal/ingest"
	"eduassist/internal/retrieval"
	"eduassist/internal/session"
	"eduassist/internal/vectorstore"

	"go.uber.org/zap"
)

// Handlers holds every dependency the HTTP surface needs: the
// ingestion orchestrator (C9), the hybrid retrieval state machine
// (C6), the session manager (C7), and the vector repository (C4) plus
// embedder for the direct /query and /clear-vector-store endpoints.
type Handlers struct {
	Ingest   *ingest.Orchestrator
	Machine  *retrieval.Machine
	Sessions *session.Manager
	Vectors  *vectorstore.Store
	Embedder embedding.Embedder
	Log      *zap.Logger
}

// NewHandlers constructs a Handlers bundle.
func NewHandlers(ing *ingest.Orchestrator, machine *retrieval.Machine, sessions *session.Manager, vectors *vectorstore.Store, embedder embedding.Embedder, log *zap.Logger) *Handlers {
	return &Handlers{Ingest: ing, Machine: machine, Sessions: sessions, Vectors: vectors, Embedder: embedder, Log: log}
}
