package skiplist

import (
	"cmp"
	"math/rand"

	"github.com/prometheus/client_golang/prometheus"
	uberatomic "go.uber.org/atomic"
)

// List is a concurrent, lock-free ordered map keyed by K. The zero
// value is not usable; construct one with New or NewWithRegisterer.
type List[K cmp.Ordered, V any] struct {
	head *node[K, V]

	length    uberatomic.Int64
	maxHeight uberatomic.Int64
	seed      uberatomic.Uint64

	domain  *domain[K, V]
	metrics *metricsSet
}

// New returns an empty List with no metrics registered.
func New[K cmp.Ordered, V any]() *List[K, V] {
	return newList[K, V](nil)
}

// NewWithRegisterer returns an empty List that registers its internal
// counters and gauges against reg. Passing a fresh *prometheus.Registry
// per list avoids collector name collisions across multiple lists.
func NewWithRegisterer[K cmp.Ordered, V any](reg prometheus.Registerer) *List[K, V] {
	return newList[K, V](reg)
}

// NewSeeded returns an empty List whose height generator starts from a
// caller-supplied seed, useful for deterministic tests.
func NewSeeded[K cmp.Ordered, V any](seed uint64) *List[K, V] {
	l := newList[K, V](nil)
	if seed == 0 {
		seed = 0x2545f4914f6cdd1d
	}
	l.seed.Store(seed)
	return l
}

func newList[K cmp.Ordered, V any](reg prometheus.Registerer) *List[K, V] {
	l := &List[K, V]{
		head:   newHead[K, V](Height),
		domain: newDomain[K, V](),
	}
	l.maxHeight.Store(1)
	l.seed.Store(randSeed())
	if reg != nil {
		l.metrics = newMetricsSet(reg, l)
	}
	return l
}

func randSeed() uint64 {
	s := rand.Uint64()
	if s == 0 {
		s = 0x2545f4914f6cdd1d
	}
	return s
}

// Len returns the number of entries currently in the list. Under
// concurrent writers this is a best-effort snapshot, not a
// linearization point.
func (l *List[K, V]) Len() int {
	return int(l.length.Load())
}

// IsEmpty reports whether Len() == 0.
func (l *List[K, V]) IsEmpty() bool {
	return l.Len() == 0
}

// Entry is a guarded handle on a node returned by Get/Insert/Remove/
// First/Last. The node it refers to cannot be reclaimed while the
// Entry's guard is held; call Release when done with it.
type Entry[K cmp.Ordered, V any] struct {
	n     *node[K, V]
	guard *Guard[K, V]
}

// Key returns the entry's key.
func (e *Entry[K, V]) Key() K { return e.n.key }

// Value returns the entry's value.
func (e *Entry[K, V]) Value() V { return e.n.val }

// Release gives up the hazard guard backing this entry. It is safe to
// call on a nil *Entry.
func (e *Entry[K, V]) Release() {
	if e == nil {
		return
	}
	e.guard.Release()
}

// Get looks up key, returning a guarded Entry and true if present.
func (l *List[K, V]) Get(key K) (*Entry[K, V], bool) {
	r := l.find(key, false)
	if r.target == nil {
		return nil, false
	}
	n, g := l.captureTarget(&r.prev[0].node.levels[0], key)
	if n == nil {
		return nil, false
	}
	return &Entry[K, V]{n: n, guard: g}, true
}

// Insert installs val under key. If key is already present, the
// existing entry is logically removed first and returned alongside
// ok==true; otherwise ok is false and the returned *Entry is nil.
func (l *List[K, V]) Insert(key K, val V) (existing *Entry[K, V], ok bool) {
	r := l.find(key, false)
	var replaced *node[K, V]
	var replacedGuard *Guard[K, V]
	for r.target != nil {
		target, guard := l.captureTarget(&r.prev[0].node.levels[0], key)
		if target == nil {
			r = l.find(key, false)
			continue
		}
		if target.tryRemoveAndTag() {
			l.unlink(target, target.height(), &r.prev)
			if replacedGuard != nil {
				replacedGuard.Release()
			}
			replaced = target
			replacedGuard = guard
		} else {
			guard.Release()
		}
		r = l.find(key, false)
	}

	height := l.genHeight()
	n := newNode[K, V](key, val, height)
	if l.metrics != nil {
		l.metrics.nodeAllocs.Inc()
	}
	l.length.Add(1)

	prev := r.prev
	startHeight := 0
	for {
		failedAt, linked := l.linkNodes(n, &prev, startHeight)
		if linked {
			break
		}
		if l.metrics != nil {
			l.metrics.insertConflicts.Inc()
		}

		search := l.find(key, false)
		for search.target != nil && search.target != n {
			t, guard := l.captureTarget(&search.prev[0].node.levels[0], key)
			if t == nil {
				search = l.find(key, false)
				continue
			}
			if t.tryRemoveAndTag() {
				l.unlink(t, t.height(), &search.prev)
				if replacedGuard != nil {
					replacedGuard.Release()
				}
				replaced = t
				replacedGuard = guard
			} else {
				guard.Release()
			}
			search = l.find(key, false)
		}
		startHeight = failedAt
		prev = search.prev
	}

	if n.removed() {
		l.find(key, false)
	}

	if replaced == nil {
		return nil, false
	}
	return &Entry[K, V]{n: replaced, guard: replacedGuard}, true
}

// Remove logically removes key, then makes a best-effort attempt to
// physically unlink it, falling back on other goroutines' search-time
// helping to finish the job if this attempt loses a race. It returns
// the removed entry and true, or nil/false if key was not present.
func (l *List[K, V]) Remove(key K) (*Entry[K, V], bool) {
	r := l.find(key, false)
	if r.target == nil {
		return nil, false
	}
	target, guard := l.captureTarget(&r.prev[0].node.levels[0], key)
	if target == nil {
		return nil, false
	}
	if !target.setRemoved() {
		guard.Release()
		return nil, false
	}
	if _, ok := target.tagLevels(tagRemoving); !ok {
		panic("skiplist: tag_levels failed on a node this goroutine just marked removed")
	}

	if _, ok := l.unlink(target, target.height(), &r.prev); !ok {
		l.find(key, false)
	}

	return &Entry[K, V]{n: target, guard: guard}, true
}

// First returns the entry with the smallest key, or ok==false if the
// list is empty.
func (l *List[K, V]) First() (*Entry[K, V], bool) {
	n, g := l.advance(l.head)
	if n == nil {
		return nil, false
	}
	return &Entry[K, V]{n: n, guard: g}, true
}

// Last returns the entry with the largest key, or ok==false if the
// list is empty. It walks the whole list at level 0, so it is O(n).
func (l *List[K, V]) Last() (*Entry[K, V], bool) {
	e, ok := l.First()
	if !ok {
		return nil, false
	}
	for {
		n, g := l.advance(e.n)
		if n == nil {
			return e, true
		}
		e.Release()
		e = &Entry[K, V]{n: n, guard: g}
	}
}

// linkNodes publishes n's tower from level start up to n.height()-1,
// CAS-linking each level into prev first on n's own outgoing edge, then
// on the predecessor's edge. It returns ok==false on a lost CAS race (on
// either edge) or when the recorded successor is stale because a node
// with an equal or smaller key was linked in after the search, reporting
// the level to resume from after a fresh find; the other early stops (n
// observed removed mid-publish, or n's reference count already back at
// zero) are reported as ok==true, since no retry is needed.
func (l *List[K, V]) linkNodes(n *node[K, V], prev *[Height]prevEntry[K, V], start int) (failedLevel int, ok bool) {
	height := n.height()
	for i := start; i < height; i++ {
		next := prev[i].next

		if n.removed() {
			return i, true
		}
		if next != nil && next.key <= n.key {
			return i, false
		}

		curr := n.levels[i].loadPtr()
		if _, _, linked := n.levels[i].compareExchange(curr, next); !linked {
			return i, false
		}

		if i == 0 {
			n.addRef()
		} else if _, gotRef := n.tryAddRef(); !gotRef {
			return i, true
		}

		if _, _, linked := prev[i].node.levels[i].compareExchange(next, n); !linked {
			n.subRef()
			return i, false
		}
	}
	return height, true
}

// unlink removes n from predecessor edges at every level from height-1
// down to 0, dropping n's reference count as each level detaches and
// retiring it once the count reaches zero. It returns ok==false at the
// first predecessor CAS that loses a race, reporting the level above
// which the caller (or a helping searcher) still needs to finish. Each
// call follows one logical removal, so the list length drops by one on
// either outcome.
func (l *List[K, V]) unlink(n *node[K, V], height int, prev *[Height]prevEntry[K, V]) (failedLevel int, ok bool) {
	if n == l.head {
		panic("skiplist: cannot unlink Head")
	}
	for i := height - 1; i >= 0; i-- {
		next := n.levels[i].loadPtr()
		if _, _, unlinked := prev[i].node.levels[i].compareExchange(n, next); !unlinked {
			l.length.Add(-1)
			return i + 1, false
		}
		if n.subRef() == 0 {
			l.retire(n)
			break
		}
	}
	l.length.Add(-1)
	l.domain.eagerReclaim()
	return -1, true
}

func (l *List[K, V]) retire(n *node[K, V]) {
	if l.metrics != nil {
		l.metrics.retiredNodes.Inc()
	}
	l.domain.retire(n, func() {
		n.destroy()
		if l.metrics != nil {
			l.metrics.nodeFrees.Inc()
		}
	})
}
