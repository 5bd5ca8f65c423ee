package todo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdiag/internal/kv"
)

func TestAddToggleDelete(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemoryStore(0), nil)

	_, err := l.Add(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	a, err := l.Add(ctx, "  Revisar inventario ")
	require.NoError(t, err)
	assert.Equal(t, "Revisar inventario", a.Text)
	assert.False(t, a.Completed)
	b, err := l.Add(ctx, "Llamar al proveedor")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	toggled, err := l.Toggle(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	toggled, err = l.Toggle(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	require.NoError(t, l.Delete(ctx, a.ID))
	assert.ErrorIs(t, l.Delete(ctx, a.ID), ErrNotFound)
	_, err = l.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all := l.All(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestTodosSurviveReload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore(0)
	first := New(store, nil)
	a, err := first.Add(ctx, "uno")
	require.NoError(t, err)
	_, err = first.Toggle(ctx, a.ID)
	require.NoError(t, err)
	_, err = first.Add(ctx, "dos")
	require.NoError(t, err)

	second := New(store, nil)
	all := second.All(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "uno", all[0].Text)
	assert.True(t, all[0].Completed)
	assert.Equal(t, "dos", all[1].Text)
}

func TestCorruptTodosLoadEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore(0)
	require.NoError(t, store.Set(ctx, Key, []byte("{not json")))
	l := New(store, nil)
	assert.Empty(t, l.All(ctx))
	_, err := l.Add(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, l.All(ctx), 1)
}
