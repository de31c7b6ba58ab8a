package skiplist

// prevEntry is one level's predecessor/successor pair as observed by a
// search, used both to report a target and to seed linkNodes/unlink.
type prevEntry[K any, V any] struct {
	node *node[K, V]
	next *node[K, V]
}

// searchResult is what find reports: a predecessor per level and,
// depending on the call, the node matching the search key exactly or
// the first live node at or after it.
type searchResult[K any, V any] struct {
	prev   [Height]prevEntry[K, V]
	target *node[K, V]
}

// topLevel returns the highest level to start descending from: the
// list's current max height, clamped down past any trailing levels of
// Head that are still unpopulated.
func (l *List[K, V]) topLevel() int {
	level := int(l.maxHeight.Load())
	for level > 1 && l.head.levels[level-1].loadPtr() == nil {
		level--
	}
	return level
}

// helpUnlink splices curr out of pred's level-lvl edge once curr's own
// tower has shown curr is being removed. It returns the node that
// should be treated as the new successor and ok=false if the CAS lost a
// race, in which case the caller must restart its search from the top.
func (l *List[K, V]) helpUnlink(pred, curr *node[K, V], lvl int) (*node[K, V], bool) {
	next := curr.levels[lvl].loadPtr()
	if _, _, ok := pred.levels[lvl].compareExchange(curr, next); !ok {
		return nil, false
	}
	if curr.subRef() == 0 {
		l.retire(curr)
	}
	return next, true
}

// find walks the tower top-down looking for key, helping unlink any
// logically-removed node it passes over. With searchClosest false it
// reports an exact key match (or no target); with searchClosest true it
// reports the first live node at or after key, used by First/Last/the
// iterator. Any failed helping CAS restarts the whole search from the
// top level, since the predecessor set collected so far may be stale.
func (l *List[K, V]) find(key K, searchClosest bool) searchResult[K, V] {
search:
	for {
		var prev [Height]prevEntry[K, V]
		for i := range prev {
			prev[i] = prevEntry[K, V]{node: l.head, next: l.head.levels[i].loadPtr()}
		}

		level := l.topLevel()
		curr := l.head
		for i := level - 1; i >= 0; i-- {
			for {
				next := curr.levels[i].loadPtr()
				restart := false
				for next != nil && next.levels[i].loadTag() != tagLive {
					newNext, ok := l.helpUnlink(curr, next, i)
					if !ok {
						if l.metrics != nil {
							l.metrics.searchRestarts.Inc()
						}
						restart = true
						break
					}
					next = newNext
				}
				if restart {
					continue search
				}
				if next != nil && next.key < key {
					curr = next
					continue
				}
				prev[i] = prevEntry[K, V]{node: curr, next: next}
				break
			}
		}

		if searchClosest {
			base := prev[0].node
			next := base.levels[0].loadPtr()
			for next != nil && next.levels[0].loadTag() != tagLive {
				newNext, ok := l.helpUnlink(base, next, 0)
				if !ok {
					if l.metrics != nil {
						l.metrics.searchRestarts.Inc()
					}
					continue search
				}
				next = newNext
			}
			prev[0].next = next
			return searchResult[K, V]{prev: prev, target: next}
		}

		next := prev[0].next
		if next != nil && next.key == key && !next.removed() {
			return searchResult[K, V]{prev: prev, target: next}
		}
		return searchResult[K, V]{prev: prev, target: nil}
	}
}

// protectLive installs a hazard guard over cell's current contents and
// rejects it if the protected node turns out to be logically removed.
// Protection and the removed check happen with the guard already
// installed, so a concurrent retire cannot run the node's destructor in
// the gap between observing it and protecting it.
func (l *List[K, V]) protectLive(cell *taggedPtr[K, V]) (*node[K, V], *Guard[K, V]) {
	addr, guard := l.domain.protect(cell)
	if addr == nil {
		return nil, nil
	}
	if addr.removed() {
		guard.Release()
		return nil, nil
	}
	return addr, guard
}

// captureTarget is protectLive plus a key check, for turning a find()
// target into a guarded node safely: find()'s own read of the target is
// unprotected, so the cell is re-read and protected here before any
// caller inspects or acts on the node.
func (l *List[K, V]) captureTarget(cell *taggedPtr[K, V], key K) (*node[K, V], *Guard[K, V]) {
	addr, guard := l.protectLive(cell)
	if addr == nil {
		return nil, nil
	}
	if addr.key != key {
		guard.Release()
		return nil, nil
	}
	return addr, guard
}

// advance returns a guarded handle on the first live node strictly
// after curr, helping unlink anything tagged in between and restarting
// via find when curr itself turns out to already be removed or a
// help-CAS loses a race. curr == Head is handled as the list's own
// start-of-iteration sentinel, which is never itself subject to
// removal. The returned guard (if any) must eventually be released by
// the caller.
func (l *List[K, V]) advance(curr *node[K, V]) (*node[K, V], *Guard[K, V]) {
	pred := curr
	if curr != l.head && curr.levels[0].loadTag() != tagLive {
		r := l.find(curr.key, true)
		if r.target == nil {
			return nil, nil
		}
		pred = r.prev[0].node
	}

	for {
		next := pred.levels[0].loadPtr()
		restart := false
		for next != nil && next.levels[0].loadTag() != tagLive {
			newNext, ok := l.helpUnlink(pred, next, 0)
			if !ok {
				restart = true
				break
			}
			next = newNext
		}
		if restart {
			seekKey := pred.key
			if pred == l.head {
				if next == nil {
					return nil, nil
				}
				seekKey = next.key
			}
			r := l.find(seekKey, true)
			if r.target == nil {
				return nil, nil
			}
			pred = r.prev[0].node
			continue
		}
		if next == nil {
			return nil, nil
		}
		addr, guard := l.protectLive(&pred.levels[0])
		if addr == nil {
			continue
		}
		if curr != l.head && addr.key <= curr.key {
			guard.Release()
			pred = addr
			continue
		}
		return addr, guard
	}
}
