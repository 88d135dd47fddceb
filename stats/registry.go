// Package stats implements the snapshot-based telemetry pipeline: a
// downstream-stats registry, a generic snapshot provider adapter, a
// fire-and-forget TCP poller/producer, in-memory receivers serving HTTP,
// and dashboard pollers. None of it knows anything about mining, shares,
// or quotes; it is deliberately decoupled from the ehash core behind the
// Provider interface.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// DownstreamStats holds per-downstream counters updated with relaxed
// atomics so the connection's hot path never blocks on a lock.
type DownstreamStats struct {
	SharesSubmitted atomic.Uint64
	QuotesCreated   atomic.Uint64
	EhashMined      atomic.Uint64
	lastShareAtNano atomic.Int64
}

// RecordShare marks a share submission and bumps the EhashMined total.
func (d *DownstreamStats) RecordShare(ehashAmount uint64) {
	d.SharesSubmitted.Add(1)
	d.EhashMined.Add(ehashAmount)
	d.lastShareAtNano.Store(time.Now().UnixNano())
}

// RecordQuote marks that a quote was created for this downstream.
func (d *DownstreamStats) RecordQuote() {
	d.QuotesCreated.Add(1)
}

// LastShareAt returns the time of the most recent recorded share, or the
// zero Time if none has been recorded yet.
func (d *DownstreamStats) LastShareAt() time.Time {
	nano := d.lastShareAtNano.Load()
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}

// DownstreamStatsSnapshot is a point-in-time, immutable copy suitable for
// JSON encoding.
type DownstreamStatsSnapshot struct {
	SharesSubmitted uint64    `json:"shares_submitted"`
	QuotesCreated   uint64    `json:"quotes_created"`
	EhashMined      uint64    `json:"ehash_mined"`
	LastShareAt     time.Time `json:"last_share_at,omitempty"`
}

func (d *DownstreamStats) Snapshot() DownstreamStatsSnapshot {
	return DownstreamStatsSnapshot{
		SharesSubmitted: d.SharesSubmitted.Load(),
		QuotesCreated:   d.QuotesCreated.Load(),
		EhashMined:      d.EhashMined.Load(),
		LastShareAt:     d.LastShareAt(),
	}
}

// DownstreamRegistry is the central, process-wide table of per-downstream
// counters. It is read-mostly: registration and unregistration take the
// write side of the lock, everything else is lock-free atomics on an
// already-looked-up *DownstreamStats.
type DownstreamRegistry struct {
	mu    sync.RWMutex
	stats map[string]*DownstreamStats
}

func NewDownstreamRegistry() *DownstreamRegistry {
	return &DownstreamRegistry{stats: make(map[string]*DownstreamStats)}
}

// Register creates (or returns the existing) counters for a downstream ID.
func (r *DownstreamRegistry) Register(id string) *DownstreamStats {
	r.mu.RLock()
	d, ok := r.stats[id]
	r.mu.RUnlock()
	if ok {
		return d
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.stats[id]; ok {
		return d
	}
	d = &DownstreamStats{}
	r.stats[id] = d
	return d
}

// Unregister removes a downstream's counters on disconnect.
func (r *DownstreamRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stats, id)
}

// Get returns the counters for id, if registered.
func (r *DownstreamRegistry) Get(id string) (*DownstreamStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.stats[id]
	return d, ok
}

// SnapshotAll returns an immutable copy of every downstream's counters,
// keyed by downstream ID.
func (r *DownstreamRegistry) SnapshotAll() map[string]DownstreamStatsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]DownstreamStatsSnapshot, len(r.stats))
	for id, d := range r.stats {
		out[id] = d.Snapshot()
	}
	return out
}
