// Package poolcore implements the Pool bridge: it turns accepted shares
// into quote requests, owns the pending-share correlation registry, and
// routes mint responses back to the downstream that submitted the
// originating share. Shares are acknowledged immediately; all mint I/O
// happens off the connection's hot path.
package poolcore

import (
	"sync"
	"time"

	"github.com/hashpool/hashpool/ehash"
)

// PendingShare is the correlation record for one in-flight quote request,
// owned exclusively by the Pool's pending registry.
type PendingShare struct {
	ChannelID      uint32
	SequenceNumber uint32
	ShareHash      ehash.ShareHash
	LockingPubKey  ehash.LockingPubKey
	Amount         ehash.EhashAmount
	CreatedAt      time.Time
}

// Registry is the mutex-protected pending-share table keyed by share_hash,
// the natural idempotency token. All mutations are short critical
// sections: insert, remove, sweep.
type Registry struct {
	mu      sync.Mutex
	entries map[ehash.ShareHash]*PendingShare
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[ehash.ShareHash]*PendingShare)}
}

// Insert adds a pending share. At most one PendingShare exists per
// share_hash at a time; a second insert for the same hash replaces the
// first, since identical share submissions produce identical hashes and
// are themselves idempotent.
func (r *Registry) Insert(p *PendingShare) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.ShareHash] = p
}

// Remove deletes and returns the pending share for hash, if any. Safe to
// call twice for the same hash: the second call reports ok=false, which
// makes duplicate mint responses a natural no-op for callers.
func (r *Registry) Remove(hash ehash.ShareHash) (*PendingShare, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[hash]
	if ok {
		delete(r.entries, hash)
	}
	return p, ok
}

// Len reports the number of in-flight pending shares.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SweepStale evicts and returns every pending share older than the given
// timeout, relative to now. Runs single-threaded to keep the registry's
// invariants simple.
func (r *Registry) SweepStale(now time.Time, timeout time.Duration) []*PendingShare {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []*PendingShare
	cutoff := now.Add(-timeout)
	for hash, p := range r.entries {
		if p.CreatedAt.Before(cutoff) {
			stale = append(stale, p)
			delete(r.entries, hash)
		}
	}
	return stale
}
