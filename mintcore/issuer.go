package mintcore

import (
	"errors"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/elnosh/gonuts/cashu"
	"github.com/google/uuid"

	"github.com/hashpool/hashpool/ehash"
)

// ErrInvalidLockingKey is returned for a locking_pubkey that does not
// parse as a valid compressed secp256k1 point (NUT-20 P2PK locking).
var ErrInvalidLockingKey = errors.New("mintcore: locking_pubkey is not a valid secp256k1 point")

// Signer issues the Cashu-side commitment for a quote. The actual blinded
// signature math lives in the gonuts cashu/crypto packages; Signer is the
// seam the Mint calls through so a real gonuts-backed mint can be swapped
// in without touching the wire handler.
type Signer interface {
	// IssueQuote returns a fresh quote ID and expiry for amount units of
	// ehash locked to lockingPubKey under keysetID.
	IssueQuote(amount ehash.EhashAmount, lockingPubKey ehash.LockingPubKey, keysetID ehash.KeysetID) (quoteID string, expiresAt time.Time, err error)

	// RecordBlindSignatures persists the blind signatures a real
	// gonuts-backed signer produced for quoteID. UUIDSigner's
	// implementation is a no-op: it never produces blind signatures
	// itself.
	RecordBlindSignatures(quoteID string, sigs cashu.BlindedSignatures) error
}

// UUIDSigner is the default Signer: it validates the locking key and
// assigns a random quote ID with a fixed TTL, deferring the actual
// blinded-signature issuance to the gonuts mint it fronts.
type UUIDSigner struct {
	QuoteTTL time.Duration
}

func NewUUIDSigner(ttl time.Duration) *UUIDSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &UUIDSigner{QuoteTTL: ttl}
}

func (s *UUIDSigner) IssueQuote(amount ehash.EhashAmount, lockingPubKey ehash.LockingPubKey, keysetID ehash.KeysetID) (string, time.Time, error) {
	if _, err := secp256k1.ParsePubKey(lockingPubKey[:]); err != nil {
		return "", time.Time{}, ErrInvalidLockingKey
	}
	return uuid.New().String(), time.Now().Add(s.QuoteTTL), nil
}

func (s *UUIDSigner) RecordBlindSignatures(quoteID string, sigs cashu.BlindedSignatures) error {
	return nil
}
