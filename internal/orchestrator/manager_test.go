package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdiag/internal/kv"
	"bizdiag/internal/repository/cases"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(&fakeEngine{}, cases.New(kv.NewMemoryStore(0)), nil)
	defer m.Close()

	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, m.IDs(), 2)

	got, err := m.Get(" " + a.ID() + " ")
	require.NoError(t, err)
	assert.Same(t, a, got)

	events, _ := b.Subscribe()
	require.NoError(t, m.Delete(b.ID()))
	_, open := <-events
	assert.False(t, open, "closing a session ends its subscriptions")

	_, err = m.Get(b.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(b.ID()), ErrSessionNotFound)
	_, err = m.Get("")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
