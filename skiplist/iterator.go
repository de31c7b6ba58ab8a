package skiplist

import "cmp"

// Iterator is a forward cursor over a List's live entries in key order.
// It does not observe a single consistent snapshot under concurrent
// writers: entries inserted or removed during iteration may or may not
// be seen, but entries present throughout the iteration are always
// seen, and a removed entry is never resurrected. Zero value is not
// usable; obtain one from List.Iterator.
type Iterator[K cmp.Ordered, V any] struct {
	l     *List[K, V]
	curr  *node[K, V]
	guard *Guard[K, V]
}

// Iterator returns a new cursor positioned before the first entry.
func (l *List[K, V]) Iterator() *Iterator[K, V] {
	return &Iterator[K, V]{l: l, curr: l.head}
}

// Next advances the cursor to the next live entry and reports whether
// one was found. Call Key/Value only after Next returns true.
func (it *Iterator[K, V]) Next() bool {
	n, g := it.l.advance(it.curr)
	if n == nil {
		return false
	}
	it.guard.Release()
	it.curr = n
	it.guard = g
	return true
}

// Close releases the hazard guard backing the cursor's current
// position. Safe to call on an iterator that never advanced or has
// already been closed.
func (it *Iterator[K, V]) Close() {
	it.guard.Release()
	it.guard = nil
}

// Key returns the current entry's key.
func (it *Iterator[K, V]) Key() K { return it.curr.key }

// Value returns the current entry's value.
func (it *Iterator[K, V]) Value() V { return it.curr.val }
