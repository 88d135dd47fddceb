package translatorcore

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/elnosh/gonuts/cashu"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hashpool/hashpool/ehash"
)

// RedemptionState tracks a wallet redemption task through the Cashu
// minting call.
type RedemptionState string

const (
	RedemptionPending RedemptionState = "pending"
	RedemptionMinted  RedemptionState = "minted"
	RedemptionFailed  RedemptionState = "failed"
)

// WalletStore persists redemption tasks and minted proofs in SQLite,
// one row per share_hash in each table.
type WalletStore struct {
	db *sql.DB
}

func OpenWalletStore(path string) (*WalletStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS redemptions (
	share_hash   TEXT PRIMARY KEY,
	quote_id     TEXT NOT NULL,
	amount       INTEGER NOT NULL,
	keyset_id    TEXT,
	state        TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS proofs (
	share_hash TEXT PRIMARY KEY,
	quote_id   TEXT NOT NULL,
	proofs     BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &WalletStore{db: db}, nil
}

// SaveProofs persists the cashu.Proofs minted for a redeemed quote as a
// single JSON blob per quote rather than per-proof rows; the Translator
// never needs to spend individual proofs itself.
func (w *WalletStore) SaveProofs(shareHash ehash.ShareHash, quoteID string, proofs cashu.Proofs) error {
	raw, err := json.Marshal(proofs)
	if err != nil {
		return err
	}
	_, err = w.db.Exec(
		`INSERT INTO proofs (share_hash, quote_id, proofs, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(share_hash) DO UPDATE SET proofs = excluded.proofs`,
		shareHash.String(), quoteID, raw, time.Now().Unix(),
	)
	return err
}

// GetProofs returns the cashu.Proofs minted for shareHash, if any were
// recorded.
func (w *WalletStore) GetProofs(shareHash ehash.ShareHash) (cashu.Proofs, bool, error) {
	var raw []byte
	err := w.db.QueryRow(`SELECT proofs FROM proofs WHERE share_hash = ?`, shareHash.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var proofs cashu.Proofs
	if err := json.Unmarshal(raw, &proofs); err != nil {
		return nil, false, err
	}
	return proofs, true, nil
}

func (w *WalletStore) Close() error {
	return w.db.Close()
}

// Enqueue records a pending redemption task for a newly received quote.
func (w *WalletStore) Enqueue(shareHash ehash.ShareHash, quoteID string, amount ehash.EhashAmount, keysetID string) error {
	now := time.Now().Unix()
	_, err := w.db.Exec(
		`INSERT INTO redemptions (share_hash, quote_id, amount, keyset_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(share_hash) DO NOTHING`,
		shareHash.String(), quoteID, uint64(amount), keysetID, string(RedemptionPending), now, now,
	)
	return err
}

// MarkState transitions a redemption task's state once the wallet has
// minted proofs for it or failed to. Failed tasks are retained, not
// deleted, for operator inspection.
func (w *WalletStore) MarkState(shareHash ehash.ShareHash, state RedemptionState) error {
	_, err := w.db.Exec(
		`UPDATE redemptions SET state = ?, updated_at = ? WHERE share_hash = ?`,
		string(state), time.Now().Unix(), shareHash.String(),
	)
	return err
}

// PendingCount reports how many redemption tasks are awaiting a wallet
// mint attempt.
func (w *WalletStore) PendingCount() (int, error) {
	var n int
	err := w.db.QueryRow(`SELECT COUNT(*) FROM redemptions WHERE state = ?`, string(RedemptionPending)).Scan(&n)
	return n, err
}

// Balance sums the amount of every successfully minted redemption,
// standing in for the wallet's spendable ecash balance on the dashboard.
func (w *WalletStore) Balance() (uint64, error) {
	var total sql.NullInt64
	err := w.db.QueryRow(`SELECT SUM(amount) FROM redemptions WHERE state = ?`, string(RedemptionMinted)).Scan(&total)
	if err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return uint64(total.Int64), nil
}
