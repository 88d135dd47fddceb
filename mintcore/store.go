// Package mintcore implements the Mint role: a minimal quote lifecycle
// store and a request handler wrapping github.com/elnosh/gonuts types.
// The blind-signature cryptography itself lives behind the Signer seam;
// mintcore owns only the share-hash-keyed quote bookkeeping and the
// wire-level request/response handling.
package mintcore

import (
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/elnosh/gonuts/cashu/nuts/nut04"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/hashpool/hashpool/ehash"
)

// State reuses gonuts' own NUT-04 mint-quote state enum (UNPAID/PAID/
// ISSUED) rather than inventing a parallel one. Hashpool quotes never sit
// in the unpaid Lightning-invoice state gonuts models; a valid accepted
// share is itself the payment, so every QuoteRecord starts life already
// nut04.Issued.
type State = nut04.State

// StateIssued is the state every hashpool QuoteRecord is created in: there
// is no separate Lightning-invoice payment step to wait on, so issuance is
// immediate (see the State doc comment above).
const StateIssued = nut04.Issued

var (
	quoteBucket  = []byte("quotes")
	keysetBucket = []byte("keysets")

	activeKeysetKey = []byte("active")
)

// QuoteRecord is the persisted record for one share's quote, keyed by
// share_hash rather than a Lightning payment hash.
type QuoteRecord struct {
	ShareHash     ehash.ShareHash     `json:"share_hash"`
	QuoteID       string              `json:"quote_id"`
	Amount        ehash.EhashAmount   `json:"amount"`
	Unit          string              `json:"unit"`
	LockingPubKey ehash.LockingPubKey `json:"locking_pubkey"`
	KeysetID      ehash.KeysetID      `json:"keyset_id"`
	State         State               `json:"state"`
	CreatedAt     time.Time           `json:"created_at"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// Store is a bbolt-backed table of QuoteRecords keyed by share_hash,
// giving the Mint at-least-once, idempotent quote issuance across
// restarts: re-submitting a request for an already-known share_hash
// returns the existing record instead of minting twice.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{quoteBucket, keysetBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for share_hash, if one exists.
func (s *Store) Get(hash ehash.ShareHash) (*QuoteRecord, bool, error) {
	var rec QuoteRecord
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(quoteBucket)
		raw := b.Get(hash[:])
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

// ActiveKeysetID returns the mint's active keyset identifier, generating
// and persisting one on first use so proxies see a stable denomination
// epoch across restarts. Rotation would write a new active entry here;
// it is out of scope for now.
func (s *Store) ActiveKeysetID() (ehash.KeysetID, error) {
	var id ehash.KeysetID
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(keysetBucket).Get(activeKeysetKey); len(raw) == ehash.KeysetIDSize {
			copy(id[:], raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return id, err
	}
	if found {
		return id, nil
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(keysetBucket)
		if raw := b.Get(activeKeysetKey); len(raw) == ehash.KeysetIDSize {
			copy(id[:], raw)
			return nil
		}
		sum := sha256.Sum256([]byte(uuid.New().String()))
		copy(id[:], sum[:ehash.KeysetIDSize])
		return b.Put(activeKeysetKey, id[:])
	})
	return id, err
}

// Put inserts or overwrites the record for rec.ShareHash.
func (s *Store) Put(rec QuoteRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(quoteBucket)
		return b.Put(rec.ShareHash[:], raw)
	})
}
