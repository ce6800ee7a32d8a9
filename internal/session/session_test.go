package session

import (
	"testing"

	"eduassist/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_UnknownIDCreatesFreshSession(t *testing.T) {
	m := New(10)
	id, history := m.GetOrCreate("")
	assert.NotEmpty(t, id)
	assert.Empty(t, history)

	id2, history2 := m.GetOrCreate("does-not-exist")
	assert.Equal(t, "does-not-exist", id2)
	assert.Empty(t, history2)
}

func TestGetOrCreate_KnownIDReturnsExistingHistory(t *testing.T) {
	m := New(10)
	id, _ := m.GetOrCreate("")
	m.Append(id, domain.Message{Role: domain.RoleUser, Content: "hi"}, domain.Message{Role: domain.RoleAssistant, Content: "hello"})

	gotID, history := m.GetOrCreate(id)
	require.Equal(t, id, gotID)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
}

func TestAppend_EvictsOldestPairOnceBoundExceeded(t *testing.T) {
	m := New(4)
	id, _ := m.GetOrCreate("")

	for i := 0; i < 3; i++ {
		m.Append(id, domain.Message{Role: domain.RoleUser, Content: "u"}, domain.Message{Role: domain.RoleAssistant, Content: "a"})
	}

	history, err := m.History(id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), 4, "history bound invariant: |history| <= MAX_HISTORY_MESSAGES")
}

func TestAppendUserOnly_DoesNotAddAssistantMessage(t *testing.T) {
	m := New(10)
	id, _ := m.GetOrCreate("")
	m.AppendUserOnly(id, domain.Message{Role: domain.RoleUser, Content: "broke before generation"})

	history, err := m.History(id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}

func TestHistory_UnknownSessionReturnsSessionNotFound(t *testing.T) {
	m := New(10)
	_, err := m.History("nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestClear_RemovesSessionAndSubsequentHistoryFails(t *testing.T) {
	m := New(10)
	id, _ := m.GetOrCreate("")
	require.NoError(t, m.Clear(id))

	_, err := m.History(id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestClear_UnknownSessionReturnsSessionNotFound(t *testing.T) {
	m := New(10)
	assert.ErrorIs(t, m.Clear("nope"), domain.ErrSessionNotFound)
}

func TestLock_SerializesTurnsOnSameSession(t *testing.T) {
	m := New(10)
	id, unlock := m.Lock("")
	done := make(chan struct{})
	go func() {
		_, unlock2 := m.Lock(id)
		unlock2()
		close(done)
	}()
	unlock()
	<-done
}
