package poolcore

import (
	"sync"

	"github.com/hashpool/hashpool/stats"
)

// Downstream is the Pool's handle to one connected proxy, identified by
// its channel_id. SendChan carries encoded frames to the connection's
// writer goroutine; a send to a disconnected downstream is simply
// dropped.
type Downstream struct {
	ChannelID uint32
	ID        string
	SendChan  chan []byte
	Stats     *stats.DownstreamStats
}

// DownstreamTable is the process-wide registry of connected downstreams,
// keyed by channel_id. A single owner handed out via the Bridge; no
// static state.
type DownstreamTable struct {
	mu    sync.RWMutex
	byID  map[uint32]*Downstream
}

func NewDownstreamTable() *DownstreamTable {
	return &DownstreamTable{byID: make(map[uint32]*Downstream)}
}

func (t *DownstreamTable) Register(d *Downstream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[d.ChannelID] = d
}

func (t *DownstreamTable) Unregister(channelID uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, channelID)
}

func (t *DownstreamTable) Get(channelID uint32) (*Downstream, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byID[channelID]
	return d, ok
}

func (t *DownstreamTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Send delivers a pre-encoded frame to the downstream's writer goroutine
// without blocking the caller. It silently drops the frame if the
// downstream is gone or its send buffer is full; the downstream already
// has its SubmitSharesSuccess; a missed notification is not fatal to
// mining.
func (t *DownstreamTable) Send(channelID uint32, frame []byte) {
	d, ok := t.Get(channelID)
	if !ok {
		return
	}
	select {
	case d.SendChan <- frame:
	default:
	}
}
