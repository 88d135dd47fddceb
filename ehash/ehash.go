// Package ehash implements the pure, side-effect-free domain functions
// shared by the Pool, Translator and Mint roles: share-hash derivation,
// work-to-amount calculation, and quote-request construction. Every
// correlation invariant the rest of the system relies on is carried here.
package ehash

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

// ShareHashSize is the canonical length of a ShareHash in bytes.
const ShareHashSize = 32

// LockingPubKeySize is the length of a compressed secp256k1 public key.
const LockingPubKeySize = 33

// KeysetIDSize is the length of a Cashu keyset identifier.
const KeysetIDSize = 8

// ShareHash is the join key for everything downstream of share acceptance.
// It is stored canonically: the 32-byte header hash reversed into the same
// big-endian-as-displayed order the pool's target comparator already uses,
// so Pool, Translator and Mint agree on the same bytes without each
// re-deriving an endianness convention.
type ShareHash [ShareHashSize]byte

func (h ShareHash) String() string {
	return fmt.Sprintf("%x", [ShareHashSize]byte(h))
}

// LockingPubKey is a 33-byte compressed secp256k1 public key supplied by the
// miner's proxy in every extended share. Never logged.
type LockingPubKey [LockingPubKeySize]byte

// KeysetID identifies the Cashu denomination active at the mint.
type KeysetID [KeysetIDSize]byte

func (k KeysetID) String() string { return fmt.Sprintf("%x", [KeysetIDSize]byte(k)) }

// EhashAmount expresses share work in units of the mint's smallest
// denomination. Always >= 1.
type EhashAmount uint64

// Errors returned by the request/ID builders in this package.
var (
	ErrInvalidHeaderHash = errors.New("ehash: header hash must be exactly 32 bytes")
	ErrInvalidLockingKey = errors.New("ehash: locking pubkey must be exactly 33 bytes and non-zero")
	ErrInvalidAmount     = errors.New("ehash: amount must be > 0")
	ErrInvalidKeysetID   = errors.New("ehash: keyset id must be exactly 8 bytes")
)

// ComputeShareHash canonicalizes a share's accepted header-hash bytes into a
// ShareHash. It must be deterministic: identical inputs always produce
// identical outputs, and the same transform is used unmodified by Pool,
// Translator and Mint so that the hash serves as the correlation key across
// all three roles.
func ComputeShareHash(headerHash []byte) (ShareHash, error) {
	var out ShareHash
	if len(headerHash) != ShareHashSize {
		return out, ErrInvalidHeaderHash
	}
	// Canonical order matches the pool's target comparator: big-endian as
	// the block header presents it, reversed from the wire's little-endian
	// transmission order.
	for i := 0; i < ShareHashSize; i++ {
		out[i] = headerHash[ShareHashSize-1-i]
	}
	return out, nil
}

// leadingZeroBits counts the number of leading zero bits across a ShareHash,
// canonical-order (most-significant byte first).
func leadingZeroBits(h ShareHash) int {
	count := 0
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// CalculateEhashAmount derives the work-value of a share deterministically
// from its ShareHash and a configured minimum-difficulty floor. The amount
// is monotone in the share hash's leading-zero count and always >= 1.
func CalculateEhashAmount(hash ShareHash, minimumDifficulty uint64) EhashAmount {
	if minimumDifficulty == 0 {
		minimumDifficulty = 1
	}
	zeros := leadingZeroBits(hash)
	// Each additional whole leading-zero byte (eight leading-zero bits)
	// doubles the amount; floor at the configured minimum so low-difficulty
	// deployments still mint something for every accepted share.
	amount := minimumDifficulty << uint(zeros/8)
	if amount == 0 {
		// overflow guard: saturate rather than wrap to zero.
		amount = ^uint64(0)
	}
	if amount < 1 {
		amount = 1
	}
	return EhashAmount(amount)
}

// ParsedQuoteRequest is the domain object the hub serializes to the Mint.
// Immutable after construction.
type ParsedQuoteRequest struct {
	Amount        EhashAmount
	Unit          string
	ShareHash     ShareHash
	LockingPubKey LockingPubKey
	KeysetID      *KeysetID
}

// BuildParsedQuoteRequest validates and constructs a ParsedQuoteRequest from
// raw share data. It fails with a typed error when the pubkey length, hash
// length, or amount is invalid.
func BuildParsedQuoteRequest(amount EhashAmount, shareHashBytes []byte, lockingPubKey []byte) (*ParsedQuoteRequest, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if len(shareHashBytes) != ShareHashSize {
		return nil, ErrInvalidHeaderHash
	}
	if len(lockingPubKey) != LockingPubKeySize || isAllZero(lockingPubKey) {
		return nil, ErrInvalidLockingKey
	}

	req := &ParsedQuoteRequest{
		Amount: amount,
		Unit:   "HASH",
	}
	copy(req.ShareHash[:], shareHashBytes)
	copy(req.LockingPubKey[:], lockingPubKey)
	return req, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// ParseKeysetID validates and parses a raw 8-byte keyset identifier.
func ParseKeysetID(b []byte) (KeysetID, error) {
	var id KeysetID
	if len(b) != KeysetIDSize {
		return id, ErrInvalidKeysetID
	}
	copy(id[:], b)
	return id, nil
}

// hashBytes is a small helper used by tests and callers that need a raw
// SHA-256 digest without going through the canonicalization step (e.g. to
// synthesize a 32-byte "header hash" fixture).
func hashBytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashBytes exposes hashBytes for callers outside the package (tests and
// fixture generators) that need an arbitrary 32-byte input.
func HashBytes(data []byte) []byte { return hashBytes(data) }

// KeysetIDFromUint64 packs a uint64 into an 8-byte KeysetID using the same
// little-endian convention as the mint-quote sub-protocol wire format.
func KeysetIDFromUint64(v uint64) KeysetID {
	var id KeysetID
	binary.LittleEndian.PutUint64(id[:], v)
	return id
}
