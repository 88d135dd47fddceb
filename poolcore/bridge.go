package poolcore

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/ehash"
	"github.com/hashpool/hashpool/hub"
	"github.com/hashpool/hashpool/internal/xerrors"
	"github.com/hashpool/hashpool/stats"
	"github.com/hashpool/hashpool/sv2"
)

// Config tunes the bridge's share-validation and staleness behavior.
type Config struct {
	MinimumDifficulty uint64
	StaleTimeout      time.Duration
	SweepInterval     time.Duration
	ListenAddr        string
}

func defaultConfig(cfg Config) Config {
	if cfg.MinimumDifficulty == 0 {
		cfg.MinimumDifficulty = 1
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 10 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	return cfg
}

// Bridge is the ehash-Pool glue: it converts accepted shares into mint
// quote requests, tracks them in the pending registry, and routes mint
// responses back to the submitting downstream. It implements
// stats.Provider so the stats poller can snapshot it without any
// mining-specific knowledge.
type Bridge struct {
	cfg Config

	registry    *Registry
	downstreams *DownstreamTable
	statsReg    *stats.DownstreamRegistry
	hub         *hub.Hub

	log *logrus.Entry

	done chan struct{}
}

func NewBridge(cfg Config, h *hub.Hub, statsReg *stats.DownstreamRegistry, log *logrus.Entry) *Bridge {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bridge{
		cfg:         defaultConfig(cfg),
		registry:    NewRegistry(),
		downstreams: NewDownstreamTable(),
		statsReg:    statsReg,
		hub:         h,
		log:         log,
		done:        make(chan struct{}),
	}
}

func (b *Bridge) Downstreams() *DownstreamTable { return b.downstreams }
func (b *Bridge) Registry() *Registry           { return b.registry }

// AcceptShare moves an accepted extended share into the pending state:
// it computes the share hash and ehash amount, inserts a PendingShare, and
// updates per-downstream counters. No mint I/O happens here; the caller
// must write the returned SubmitSharesSuccess to the downstream sender
// before calling RequestQuote, so the acknowledgement always precedes any
// extension notification for the same share.
func (b *Bridge) AcceptShare(fields sv2.SubmitSharesExtendedFields) (sv2.SubmitSharesSuccess, *PendingShare, error) {
	shareHash, err := ehash.ComputeShareHash(fields.Hash[:])
	if err != nil {
		return sv2.SubmitSharesSuccess{}, nil, err
	}
	amount := ehash.CalculateEhashAmount(shareHash, b.cfg.MinimumDifficulty)

	pending := &PendingShare{
		ChannelID:      fields.ChannelID,
		SequenceNumber: fields.SequenceNumber,
		ShareHash:      shareHash,
		LockingPubKey:  fields.LockingPubKey,
		Amount:         amount,
		CreatedAt:      time.Now(),
	}
	b.registry.Insert(pending)

	if d, ok := b.downstreams.Get(fields.ChannelID); ok && d.Stats != nil {
		d.Stats.RecordShare(uint64(amount))
	}

	return sv2.SubmitSharesSuccess{
		ChannelID:          fields.ChannelID,
		LastSequenceNumber: fields.SequenceNumber,
		NewSubmitsAccepted: 1,
		NewSharesSum:       uint64(amount),
	}, pending, nil
}

// RequestQuote submits the pending share's quote request to the hub. A
// build or submit failure is logged and the quote attempt dropped; the
// share itself is already acknowledged.
func (b *Bridge) RequestQuote(pending *PendingShare) {
	parsed, err := ehash.BuildParsedQuoteRequest(pending.Amount, pending.ShareHash[:], pending.LockingPubKey[:])
	if err != nil {
		b.log.WithError(xerrors.New(xerrors.KindQuoteRequestMalformed, err)).Warn("poolcore: failed to build quote request, dropping")
		return
	}
	if err := b.hub.Submit(*parsed); err != nil {
		b.log.WithError(xerrors.New(xerrors.KindHubUnavailable, err)).Debug("poolcore: hub unavailable, quote attempt dropped")
	}
}

// HandleSubmitSharesExtended is AcceptShare followed immediately by
// RequestQuote, for callers that own no sender of their own.
func (b *Bridge) HandleSubmitSharesExtended(fields sv2.SubmitSharesExtendedFields) (sv2.SubmitSharesSuccess, error) {
	success, pending, err := b.AcceptShare(fields)
	if err != nil {
		return sv2.SubmitSharesSuccess{}, err
	}
	b.RequestQuote(pending)
	return success, nil
}

// RunResponseDispatcher drains the hub's Responses channel, matches each
// one to its PendingShare, and forwards a MintQuoteNotification or
// MintQuoteFailure extension message to the originating downstream. A
// response whose downstream is gone is a silent no-op send; the pending
// entry is still removed.
func (b *Bridge) RunResponseDispatcher() {
	for {
		select {
		case <-b.done:
			return
		case resp, ok := <-b.hub.Responses():
			if !ok {
				return
			}
			b.handleResponse(resp)
		}
	}
}

func (b *Bridge) handleResponse(resp hub.Response) {
	pending, ok := b.registry.Remove(resp.ShareHash)
	if !ok {
		b.log.WithField("share_hash", resp.ShareHash.String()).Debug("poolcore: response for unknown/already-handled share, dropped")
		return
	}

	if d, ok := b.downstreams.Get(pending.ChannelID); ok && d.Stats != nil && resp.Quote != nil {
		d.Stats.RecordQuote()
	}

	if resp.Quote != nil {
		notif := sv2.MintQuoteNotification{
			ChannelID:      pending.ChannelID,
			SequenceNumber: pending.SequenceNumber,
			ShareHash:      [32]byte(pending.ShareHash),
			QuoteID:        resp.Quote.QuoteID,
			Amount:         resp.Quote.Amount,
		}
		b.emit(pending.ChannelID, sv2.MsgTypeMintQuoteNotification, notif.Encode())
		return
	}

	msg := "mint rejected quote"
	if resp.Failure != nil {
		msg = string(resp.Failure.Message)
	}
	failure := sv2.MintQuoteFailure{
		ChannelID:      pending.ChannelID,
		SequenceNumber: pending.SequenceNumber,
		ShareHash:      [32]byte(pending.ShareHash),
		ErrorMessage:   sv2.STR0_255(msg),
	}
	b.emit(pending.ChannelID, sv2.MsgTypeMintQuoteFailure, failure.Encode())
}

func (b *Bridge) emit(channelID uint32, msgType uint8, payload []byte) {
	header := sv2.FrameHeader{MsgType: msgType, MsgLength: uint32(len(payload))}
	frame := append(header.Serialize(), payload...)
	b.downstreams.Send(channelID, frame)
}

// RunStaleSweep evicts PendingShare entries past the configured timeout
// and emits a mint-timeout MintQuoteFailure for each. Runs until Close is
// called.
func (b *Bridge) RunStaleSweep() {
	ticker := time.NewTicker(b.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			stale := b.registry.SweepStale(time.Now(), b.cfg.StaleTimeout)
			for _, p := range stale {
				failure := sv2.MintQuoteFailure{
					ChannelID:      p.ChannelID,
					SequenceNumber: p.SequenceNumber,
					ShareHash:      [32]byte(p.ShareHash),
					ErrorMessage:   "mint-timeout",
				}
				b.emit(p.ChannelID, sv2.MsgTypeMintQuoteFailure, failure.Encode())
			}
		}
	}
}

func (b *Bridge) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

// GetSnapshot implements stats.Provider.
func (b *Bridge) GetSnapshot() (any, error) {
	return stats.PoolSnapshot{
		GeneratedAt:   time.Now(),
		ListenAddr:    b.cfg.ListenAddr,
		PendingShares: b.registry.Len(),
		Connections:   b.statsReg.SnapshotAll(),
	}, nil
}
