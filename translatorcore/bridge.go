package translatorcore

import (
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/ehash"
	"github.com/hashpool/hashpool/internal/xerrors"
	"github.com/hashpool/hashpool/stats"
	"github.com/hashpool/hashpool/sv2"
)

// Bridge dispatches extension-range SV2 messages arriving on the upstream
// connection, maintains the QuoteRecord correlation map, and drives the
// wallet redemption queue. It implements stats.Provider so the stats
// poller can snapshot it without any knowledge of mining or wallet
// internals.
type Bridge struct {
	records     *QuoteRecordMap
	wallet      Wallet
	walletStore *WalletStore
	keypair     *LockingKeypair

	statsReg *stats.DownstreamRegistry

	mu       sync.RWMutex
	keysetID *ehash.KeysetID
	deferred []*QuoteRecord

	listenAddr   string
	upstreamAddr string

	log *logrus.Entry
}

// deferredCap bounds the quotes held back while no keyset is known yet;
// past it the oldest deferred quote is dropped.
const deferredCap = 1000

func NewBridge(records *QuoteRecordMap, walletStore *WalletStore, wallet Wallet, keypair *LockingKeypair, statsReg *stats.DownstreamRegistry, log *logrus.Entry) *Bridge {
	if wallet == nil {
		wallet = NoopWallet{}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bridge{
		records:     records,
		wallet:      wallet,
		walletStore: walletStore,
		keypair:     keypair,
		statsReg:    statsReg,
		log:         log,
	}
}

// SetKeysetID records the acquired keyset, unblocking quote storage, and
// replays any quotes that arrived while none was known.
func (b *Bridge) SetKeysetID(id ehash.KeysetID) {
	b.mu.Lock()
	b.keysetID = &id
	pending := b.deferred
	b.deferred = nil
	b.mu.Unlock()

	for _, rec := range pending {
		b.store(rec, id)
	}
}

func (b *Bridge) KeysetID() (ehash.KeysetID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.keysetID == nil {
		return ehash.KeysetID{}, false
	}
	return *b.keysetID, true
}

func (b *Bridge) Records() *QuoteRecordMap { return b.records }

// SetAddrs records the listen/upstream addresses for snapshot reporting
// only; it has no effect on networking.
func (b *Bridge) SetAddrs(listenAddr, upstreamAddr string) {
	b.listenAddr = listenAddr
	b.upstreamAddr = upstreamAddr
}

// Dispatch routes one extension-range frame to its handler. Unknown
// extension types are logged and dropped; Dispatch never panics, so a
// malformed or unrecognized frame cannot crash the upstream mining loop.
func (b *Bridge) Dispatch(msgType uint8, payload []byte) {
	if !sv2.IsExtensionMessage(msgType) {
		b.log.WithField("msg_type", msgType).Warn("translatorcore: Dispatch called with a non-extension message type")
		return
	}
	switch msgType {
	case sv2.MsgTypeMintQuoteNotification:
		b.handleNotification(payload)
	case sv2.MsgTypeMintQuoteFailure:
		b.handleFailure(payload)
	default:
		b.log.WithField("msg_type", msgType).Debug("translatorcore: unknown extension message, dropped")
	}
}

func (b *Bridge) handleNotification(payload []byte) {
	notif, err := sv2.DecodeMintQuoteNotification(payload)
	if err != nil {
		b.log.WithError(xerrors.New(xerrors.KindExtensionDecodeFailed, err)).Warn("translatorcore: malformed MintQuoteNotification, dropped")
		return
	}

	rec := &QuoteRecord{
		ShareHash:  ehash.ShareHash(notif.ShareHash),
		QuoteID:    string(notif.QuoteID),
		Amount:     ehash.EhashAmount(notif.Amount),
		ReceivedAt: time.Now(),
	}

	// No quote is stored without a keyset; hold the record until
	// acquisition completes and SetKeysetID replays it.
	keysetID, ok := b.KeysetID()
	if !ok {
		b.deferRecord(rec)
		return
	}
	b.store(rec, keysetID)
}

func (b *Bridge) deferRecord(rec *QuoteRecord) {
	b.mu.Lock()
	// The keyset may have arrived since the caller's check; store directly
	// instead of stranding the record in a never-replayed list.
	if b.keysetID != nil {
		id := *b.keysetID
		b.mu.Unlock()
		b.store(rec, id)
		return
	}
	if len(b.deferred) >= deferredCap {
		b.deferred = b.deferred[1:]
	}
	b.deferred = append(b.deferred, rec)
	n := len(b.deferred)
	b.mu.Unlock()
	b.log.WithFields(logrus.Fields{
		"quote_id": rec.QuoteID,
		"deferred": n,
	}).Warn("translatorcore: keyset not yet acquired, quote storage deferred")
}

func (b *Bridge) store(rec *QuoteRecord, keysetID ehash.KeysetID) {
	b.records.Insert(rec)
	if b.walletStore != nil {
		if err := b.walletStore.Enqueue(rec.ShareHash, rec.QuoteID, rec.Amount, keysetID.String()); err != nil {
			b.log.WithError(err).Error("translatorcore: failed to enqueue redemption task")
			return
		}
	}
	b.redeem(rec, keysetID)
}

func (b *Bridge) redeem(rec *QuoteRecord, keysetID ehash.KeysetID) {
	var lockingPriv *secp256k1.PrivateKey
	if b.keypair != nil {
		lockingPriv = b.keypair.Private
	}

	proofs, err := b.wallet.MintProofs(rec.QuoteID, rec.Amount, keysetID, lockingPriv)
	if err != nil {
		b.log.WithError(xerrors.New(xerrors.KindWalletMintFailed, err)).WithField("quote_id", rec.QuoteID).Warn("translatorcore: wallet mint failed, retaining quote record for inspection")
		if b.walletStore != nil {
			_ = b.walletStore.MarkState(rec.ShareHash, RedemptionFailed)
		}
		return
	}
	if b.walletStore != nil {
		_ = b.walletStore.MarkState(rec.ShareHash, RedemptionMinted)
		if len(proofs) > 0 {
			if err := b.walletStore.SaveProofs(rec.ShareHash, rec.QuoteID, proofs); err != nil {
				b.log.WithError(err).WithField("quote_id", rec.QuoteID).Warn("translatorcore: failed to persist minted proofs")
			}
		}
	}
	b.records.Remove(rec.ShareHash)
}

func (b *Bridge) handleFailure(payload []byte) {
	failure, err := sv2.DecodeMintQuoteFailure(payload)
	if err != nil {
		b.log.WithError(xerrors.New(xerrors.KindExtensionDecodeFailed, err)).Warn("translatorcore: malformed MintQuoteFailure, dropped")
		return
	}
	b.log.WithFields(logrus.Fields{
		"channel_id": failure.ChannelID,
		"share_hash": ehash.ShareHash(failure.ShareHash).String(),
		"error":      string(failure.ErrorMessage),
	}).Warn("translatorcore: mint quote failure reported, share still accounted as accepted")
}

// GetSnapshot implements stats.Provider.
func (b *Bridge) GetSnapshot() (any, error) {
	var balance uint64
	if b.walletStore != nil {
		if v, err := b.walletStore.Balance(); err == nil {
			balance = v
		}
	}
	return stats.ProxySnapshot{
		GeneratedAt:   time.Now(),
		ListenAddr:    b.listenAddr,
		UpstreamAddr:  b.upstreamAddr,
		WalletBalance: balance,
		Connections:   b.statsReg.SnapshotAll(),
	}, nil
}
