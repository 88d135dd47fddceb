package translatorcore

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/hashpool/hashpool/ehash"
)

// LockingKeypair is the proxy's persistent secp256k1 identity. Only the
// compressed public key is ever sent upstream; the private key stays
// local, in memory and in the key file it is loaded from. Rotation is out
// of scope.
type LockingKeypair struct {
	Private *secp256k1.PrivateKey
	Public  ehash.LockingPubKey
}

// LoadOrCreateLockingKeypair reads a hex-encoded private key from path, or
// generates and persists a fresh one if the file does not exist.
func LoadOrCreateLockingKeypair(path string) (*LockingKeypair, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return keypairFromHex(strings.TrimSpace(string(raw)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(priv.Serialize())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return nil, err
	}
	return keypairFromPriv(priv), nil
}

func keypairFromHex(encoded string) (*LockingKeypair, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, errors.New("translatorcore: locking key file does not contain a 32-byte private key")
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return keypairFromPriv(priv), nil
}

func keypairFromPriv(priv *secp256k1.PrivateKey) *LockingKeypair {
	var pub ehash.LockingPubKey
	copy(pub[:], priv.PubKey().SerializeCompressed())
	return &LockingKeypair{Private: priv, Public: pub}
}
