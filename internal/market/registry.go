package market

import (
	"sync"
	"time"

	"tradepost.gg/internal/sim/world"
)

// Registry is the concurrent map from position to shop, plus one lock per
// position for transaction serialization. All() returns a copy, never a live
// view. Position locks, once created, live for the rest of the process:
// deleting them racily against an in-flight attempt is never worth the few
// bytes they cost.
type Registry struct {
	mu    sync.RWMutex
	shops map[world.Pos]*Shop

	lockMu sync.Mutex
	locks  map[world.Pos]*PosLock
}

func NewRegistry() *Registry {
	return &Registry{
		shops: make(map[world.Pos]*Shop),
		locks: make(map[world.Pos]*PosLock),
	}
}

func (r *Registry) Get(pos world.Pos) (*Shop, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shops[pos]
	return s, ok
}

func (r *Registry) Contains(pos world.Pos) bool {
	_, ok := r.Get(pos)
	return ok
}

// PutIfAbsent registers the shop unless its position is already taken.
func (r *Registry) PutIfAbsent(shop *Shop) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.shops[shop.Position]; exists {
		return false
	}
	r.shops[shop.Position] = shop
	return true
}

func (r *Registry) Remove(pos world.Pos) (*Shop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shops[pos]
	if ok {
		delete(r.shops, pos)
	}
	return s, ok
}

// All returns a point-in-time snapshot of every registered shop.
func (r *Registry) All() []*Shop {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Shop, 0, len(r.shops))
	for _, s := range r.shops {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shops)
}

// Replace swaps the full record set, e.g. after a load from disk.
func (r *Registry) Replace(shops []*Shop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shops = make(map[world.Pos]*Shop, len(shops))
	for _, s := range shops {
		r.shops[s.Position] = s
	}
}

// LockFor returns the mutual-exclusion handle for one position, creating it
// on first use.
func (r *Registry) LockFor(pos world.Pos) *PosLock {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	l, ok := r.locks[pos]
	if !ok {
		l = &PosLock{ch: make(chan struct{}, 1)}
		r.locks[pos] = l
	}
	return l
}

// PosLock is a mutex with bounded acquisition, serializing trade execution at
// one position.
type PosLock struct {
	ch chan struct{}
}

// Acquire takes the lock, giving up after the timeout so a contended position
// cannot stall its caller indefinitely.
func (l *PosLock) Acquire(timeout time.Duration) bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case l.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (l *PosLock) Release() { <-l.ch }
