package skiplist

import (
	"sync"
	"sync/atomic"
)

// record is one hazard slot. A goroutine claims a record by winning the
// inUse CAS, publishes the address it wants protected into ptr, and
// releases the record (inUse back to false) when done. Records are
// never freed once allocated; they are recycled across goroutines via
// the inUse flag, following the classic Michael (2004) scheme.
type record[K any, V any] struct {
	inUse atomic.Bool
	ptr   atomic.Pointer[node[K, V]]
	next  *record[K, V]
}

// domain owns the hazard-record registry and the set of retired nodes
// awaiting reclamation. There is one domain per List.
type domain[K any, V any] struct {
	head atomic.Pointer[record[K, V]]

	mu    sync.Mutex
	limbo map[*node[K, V]]func()
}

func newDomain[K any, V any]() *domain[K, V] {
	return &domain[K, V]{limbo: make(map[*node[K, V]]func())}
}

func (d *domain[K, V]) acquireRecord() *record[K, V] {
	for r := d.head.Load(); r != nil; r = r.next {
		if r.inUse.CompareAndSwap(false, true) {
			return r
		}
	}
	r := &record[K, V]{}
	r.inUse.Store(true)
	for {
		head := d.head.Load()
		r.next = head
		if d.head.CompareAndSwap(head, r) {
			return r
		}
	}
}

// Guard keeps the node it protects out of reclamation until Release is
// called. A nil *Guard is valid and Release is a no-op on it, matching
// the "absent target, no guard needed" case of Get/Insert/Remove.
type Guard[K any, V any] struct {
	rec *record[K, V]
}

// Release gives up the hazard slot, allowing the protected node to be
// reclaimed once no other guard protects it.
func (g *Guard[K, V]) Release() {
	if g == nil || g.rec == nil {
		return
	}
	g.rec.ptr.Store(nil)
	g.rec.inUse.Store(false)
}

// protect repeatedly samples cell until the address it publishes into a
// hazard slot matches what it reads back, guaranteeing the returned
// node cannot be reclaimed out from under the caller.
func (d *domain[K, V]) protect(cell *taggedPtr[K, V]) (*node[K, V], *Guard[K, V]) {
	rec := d.acquireRecord()
	for {
		addr := cell.loadPtr()
		if addr == nil {
			rec.inUse.Store(false)
			return nil, nil
		}
		rec.ptr.Store(addr)
		if cell.loadPtr() == addr {
			return addr, &Guard[K, V]{rec: rec}
		}
	}
}

// protectRaw installs a hazard guard over an address already known to
// be live (e.g. a search target captured under the caller's own local
// variables for the duration of the call that found it).
func (d *domain[K, V]) protectRaw(addr *node[K, V]) *Guard[K, V] {
	if addr == nil {
		return nil
	}
	rec := d.acquireRecord()
	rec.ptr.Store(addr)
	return &Guard[K, V]{rec: rec}
}

// retire hands a node to the domain along with the cleanup to run once
// no hazard record protects it, then makes a best-effort attempt to run
// that cleanup immediately.
func (d *domain[K, V]) retire(n *node[K, V], cleanup func()) {
	d.mu.Lock()
	d.limbo[n] = cleanup
	d.mu.Unlock()
	d.eagerReclaim()
}

// eagerReclaim scans every hazard record and runs the cleanup of any
// retired node no record currently protects. It is a hint, not a
// guarantee: nodes left protected simply wait for the next call.
func (d *domain[K, V]) eagerReclaim() {
	protected := make(map[*node[K, V]]struct{})
	for r := d.head.Load(); r != nil; r = r.next {
		if p := r.ptr.Load(); p != nil {
			protected[p] = struct{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for n, cleanup := range d.limbo {
		if _, stillProtected := protected[n]; stillProtected {
			continue
		}
		delete(d.limbo, n)
		if cleanup != nil {
			cleanup()
		}
	}
}
