package translatorcore

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/elnosh/gonuts/cashu"

	"github.com/hashpool/hashpool/ehash"
)

// Wallet performs the actual Cashu proof minting for a redeemed quote.
// The blinded-signature math lives behind this seam so a real
// github.com/elnosh/gonuts wallet can plug in without touching the
// dispatch path. It returns the minted cashu.Proofs for WalletStore to
// persist.
type Wallet interface {
	MintProofs(quoteID string, amount ehash.EhashAmount, keysetID ehash.KeysetID, lockingPriv *secp256k1.PrivateKey) (cashu.Proofs, error)
}

// NoopWallet satisfies Wallet without touching any cryptography; it is
// the default used until a real gonuts-backed wallet is wired in, and is
// useful in tests that only exercise the QuoteRecord/redemption bookkeeping.
type NoopWallet struct{}

func (NoopWallet) MintProofs(quoteID string, amount ehash.EhashAmount, keysetID ehash.KeysetID, lockingPriv *secp256k1.PrivateKey) (cashu.Proofs, error) {
	return nil, nil
}
