package skiplist

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListIsEmpty(t *testing.T) {
	l := New[int, string]()
	assert.True(t, l.IsEmpty())
	assert.Equal(t, 0, l.Len())
	_, ok := l.Get(1)
	assert.False(t, ok)
}

func TestInsertAndGet(t *testing.T) {
	l := New[int, string]()
	e, existed := l.Insert(10, "ten")
	assert.False(t, existed)
	assert.Nil(t, e)
	assert.Equal(t, 1, l.Len())

	got, ok := l.Get(10)
	require.True(t, ok)
	assert.Equal(t, "ten", got.Value())
	got.Release()
}

func TestInsertManyOrdered(t *testing.T) {
	l := New[int, int]()
	keys := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, k := range keys {
		l.Insert(k, k*10)
	}
	assert.Equal(t, len(keys), l.Len())

	var seen []int
	it := l.Iterator()
	for it.Next() {
		seen = append(seen, it.Key())
	}
	require.Len(t, seen, len(keys))
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
}

func TestInsertReplacesExistingKey(t *testing.T) {
	l := New[int, string]()
	l.Insert(1, "first")
	old, existed := l.Insert(1, "second")
	require.True(t, existed)
	assert.Equal(t, "first", old.Value())
	old.Release()

	assert.Equal(t, 1, l.Len())
	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "second", got.Value())
	got.Release()
}

func TestRemove(t *testing.T) {
	l := New[int, int]()
	l.Insert(1, 100)
	l.Insert(2, 200)

	e, ok := l.Remove(1)
	require.True(t, ok)
	assert.Equal(t, 100, e.Value())
	e.Release()

	assert.Equal(t, 1, l.Len())
	_, ok = l.Get(1)
	assert.False(t, ok)

	_, ok = l.Remove(1)
	assert.False(t, ok)
}

func TestFirstAndLast(t *testing.T) {
	l := New[int, int]()
	_, ok := l.First()
	assert.False(t, ok)

	for _, k := range []int{4, 1, 3, 2, 5} {
		l.Insert(k, k)
	}

	first, ok := l.First()
	require.True(t, ok)
	assert.Equal(t, 1, first.Key())
	first.Release()

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, 5, last.Key())
	last.Release()
}

func TestRemoveThenReinsert(t *testing.T) {
	l := New[int, int]()
	l.Insert(1, 1)
	l.Remove(1)
	_, existed := l.Insert(1, 2)
	assert.False(t, existed)

	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, got.Value())
	got.Release()
	assert.Equal(t, 1, l.Len())
}

func TestIteratorSkipsRemovedEntries(t *testing.T) {
	l := New[int, int]()
	for i := 0; i < 10; i++ {
		l.Insert(i, i)
	}
	for i := 0; i < 10; i += 2 {
		l.Remove(i)
	}

	var seen []int
	it := l.Iterator()
	for it.Next() {
		seen = append(seen, it.Key())
	}
	assert.Equal(t, []int{1, 3, 5, 7, 9}, seen)
}

func TestNewWithRegistererExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := NewWithRegisterer[int, int](reg)
	l.Insert(1, 1)
	l.Remove(1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["lfskiplist_node_allocs_total"])
	assert.True(t, names["lfskiplist_length"])
}
