// Package translatorcore implements the Translator bridge: extension
// message dispatch on the upstream SV2 connection, the bounded
// QuoteRecord correlation map, locking-keypair lifecycle, and the wallet
// redemption queue. Structurally it is the mirror image of poolcore: the
// same connection/dispatch split, with quote consumption in place of
// quote production.
package translatorcore

import (
	"sync"
	"time"

	"github.com/hashpool/hashpool/ehash"
)

// QuoteRecordCap and QuoteRecordTrimTo bound the QuoteRecord map: past
// the cap, the oldest entries are trimmed down to the lower bound.
const (
	QuoteRecordCap    = 10000
	QuoteRecordTrimTo = 5000
)

// QuoteRecord is the Translator-side correlation entry created when a
// MintQuoteNotification arrives, consumed once the wallet mints proofs for
// it.
type QuoteRecord struct {
	ShareHash  ehash.ShareHash
	QuoteID    string
	Amount     ehash.EhashAmount
	ReceivedAt time.Time
}

// QuoteRecordMap is the bounded, share_hash-keyed table of received quotes
// awaiting redemption. A single short-critical-section mutex guards it;
// FIFO trim runs inline on insert when size exceeds the cap.
type QuoteRecordMap struct {
	mu      sync.Mutex
	entries map[ehash.ShareHash]*QuoteRecord
	order   []ehash.ShareHash // insertion order, for FIFO eviction
}

func NewQuoteRecordMap() *QuoteRecordMap {
	return &QuoteRecordMap{entries: make(map[ehash.ShareHash]*QuoteRecord)}
}

// Insert adds a record, trimming the oldest entries down to
// QuoteRecordTrimTo if the map has grown past QuoteRecordCap.
func (q *QuoteRecordMap) Insert(rec *QuoteRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[rec.ShareHash]; !exists {
		q.order = append(q.order, rec.ShareHash)
	}
	q.entries[rec.ShareHash] = rec

	if len(q.entries) > QuoteRecordCap {
		evict := len(q.entries) - QuoteRecordTrimTo
		for i := 0; i < evict && i < len(q.order); i++ {
			delete(q.entries, q.order[i])
		}
		q.order = q.order[evict:]
	}
}

// Remove deletes and returns the record for hash, consumed once the
// wallet has successfully minted proofs for it.
func (q *QuoteRecordMap) Remove(hash ehash.ShareHash) (*QuoteRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.entries[hash]
	if ok {
		delete(q.entries, hash)
	}
	return rec, ok
}

// Get returns the record for hash without removing it, used to retain the
// entry for operator inspection after a failed redemption.
func (q *QuoteRecordMap) Get(hash ehash.ShareHash) (*QuoteRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.entries[hash]
	return rec, ok
}

func (q *QuoteRecordMap) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
