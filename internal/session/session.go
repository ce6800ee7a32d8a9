// Package session is the Session Manager (C7): bounded, in-memory
// per-session conversation history with lifecycle bound to process
// memory only (spec §1 Non-goals: no durable session storage).
package session

import (
	"sync"
	"time"

	"eduassist/internal/domain"

	"github.com/google/uuid"
)

// entry pairs a Session with the per-session lock that serializes
// turns on it (spec §5: "C7 obtains a per-session lock for the
// duration of a turn"). Adapted in spirit from the corpus's
// named-lock-per-resource shape, here a local in-process mutex map
// rather than a distributed lock, because session storage is
// explicitly process-memory-only (spec §4.6).
type entry struct {
	session domain.Session
	turnMu  sync.Mutex
}

// Manager is the process-wide session store. A sync.RWMutex field
// guards the map itself; distinct sessions are fully
// concurrent, lock-free for reads of distinct entries.
type Manager struct {
	mu                 sync.RWMutex
	sessions           map[string]*entry
	maxHistoryMessages int
}

// New constructs a Manager bounding each session's history to
// maxHistoryMessages (spec §3, default 10).
func New(maxHistoryMessages int) *Manager {
	if maxHistoryMessages <= 0 {
		maxHistoryMessages = 10
	}
	return &Manager{
		sessions:           make(map[string]*entry),
		maxHistoryMessages: maxHistoryMessages,
	}
}

// GetOrCreate returns the session for id, creating one with a fresh
// UUIDv4 when id is empty or unknown (spec §3).
func (m *Manager) GetOrCreate(id string) (string, []domain.Message) {
	m.mu.RLock()
	if id != "" {
		if e, ok := m.sessions[id]; ok {
			m.mu.RUnlock()
			e.turnMu.Lock()
			msgs := append([]domain.Message(nil), e.session.Messages...)
			e.turnMu.Unlock()
			return id, msgs
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if e, ok := m.sessions[id]; ok {
			return id, append([]domain.Message(nil), e.session.Messages...)
		}
	}
	newID := id
	if newID == "" {
		newID = uuid.NewString()
	}
	now := time.Now()
	m.sessions[newID] = &entry{session: domain.Session{
		ID:            newID,
		CreatedAt:     now,
		LastTouchedAt: now,
	}}
	return newID, nil
}

// Lock acquires the per-session turn lock for id, creating the
// session if necessary, and returns an unlock function. Callers hold
// this for the duration of a single turn so turns on one session
// never interleave (spec §5).
func (m *Manager) Lock(id string) (string, func()) {
	resolvedID, _ := m.GetOrCreate(id)
	m.mu.RLock()
	e := m.sessions[resolvedID]
	m.mu.RUnlock()
	e.turnMu.Lock()
	return resolvedID, e.turnMu.Unlock
}

// Append records a completed turn's user and assistant messages,
// evicting the oldest pair in FIFO order once the bound is exceeded
// (spec §3). Call while still holding the lock returned by Lock.
func (m *Manager) Append(id string, user, assistant domain.Message) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	e.session.Messages = append(e.session.Messages, user, assistant)
	if over := len(e.session.Messages) - m.maxHistoryMessages; over > 0 {
		e.session.Messages = e.session.Messages[over:]
	}
	e.session.LastTouchedAt = time.Now()
}

// AppendUserOnly records only the user message of a turn that erred
// before generation began visibly to the user (spec §3 invariant).
func (m *Manager) AppendUserOnly(id string, user domain.Message) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	e.session.Messages = append(e.session.Messages, user)
	if over := len(e.session.Messages) - m.maxHistoryMessages; over > 0 {
		e.session.Messages = e.session.Messages[over:]
	}
	e.session.LastTouchedAt = time.Now()
}

// History returns a session's messages, or ErrSessionNotFound.
func (m *Manager) History(id string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]domain.Message(nil), e.session.Messages...), nil
}

// Clear removes a session's history, or ErrSessionNotFound if it does
// not exist.
func (m *Manager) Clear(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}
