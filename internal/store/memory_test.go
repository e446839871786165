package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "a/b")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "a/b", []byte(`1`)))
	v, err := m.Get(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, `1`, string(v))

	require.NoError(t, m.Set(ctx, "a/b", nil))
	_, err = m.Get(ctx, "a/b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Update(ctx, []Write{
		{Path: "t/p/1", Value: []byte(`1`)},
		{Path: "t/p/2", Value: []byte(`2`)},
		{Path: "t/p/2/deep", Value: []byte(`3`)},
		{Path: "t/pp/9", Value: []byte(`4`)},
	}))

	got, err := m.List(ctx, "t/p")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "t/p/1")
	assert.Contains(t, got, "t/p/2")
}

func TestMemory_SubscribeSeesWritesInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var seen []string
	unsub, err := m.Subscribe("t/p", func(c Change) { seen = append(seen, c.Path) })
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, []Write{
		{Path: "t/p/b", Value: []byte(`1`)},
		{Path: "t/other", Value: []byte(`1`)},
		{Path: "t/p/a", Value: []byte(`1`)},
	}))
	assert.Equal(t, []string{"t/p/b", "t/p/a"}, seen)

	unsub()
	require.NoError(t, m.Set(ctx, "t/p/c", []byte(`1`)))
	assert.Len(t, seen, 2)
}

func TestMemory_InvalidPath(t *testing.T) {
	m := NewMemory()
	for _, p := range []string{"", "/a", "a/", "a//b"} {
		require.ErrorIs(t, m.Set(context.Background(), p, []byte(`1`)), ErrInvalidPath, p)
	}
}

func TestMemory_ClosedIsUnavailable(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Set(context.Background(), "a", []byte(`1`)), ErrUnavailable)
}
