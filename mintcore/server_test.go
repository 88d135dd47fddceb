package mintcore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/hashpool/hashpool/ehash"
	"github.com/hashpool/hashpool/sv2"
)

func validLockingKey(t *testing.T) ehash.LockingPubKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var k ehash.LockingPubKey
	copy(k[:], priv.PubKey().SerializeCompressed())
	return k
}

func newTestServer(t *testing.T) (*Server, *Store) {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "mint.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(store, NewUUIDSigner(time.Minute), nil), store
}

func TestHandleRequestIssuesQuote(t *testing.T) {
	s, store := newTestServer(t)
	req := sv2.MintQuoteRequest{
		Amount:        42,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(1)),
		LockingPubKey: [33]byte(validLockingKey(t)),
	}
	body, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteResponse {
		t.Fatalf("got msg type %#x, want MintQuoteResponse", msgType)
	}
	resp, err := sv2.DecodeMintQuoteResponse(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Amount != 42 {
		t.Fatalf("got amount %d, want 42", resp.Amount)
	}
	if resp.QuoteID == "" {
		t.Fatal("expected non-empty quote_id")
	}
	active, err := store.ActiveKeysetID()
	if err != nil {
		t.Fatalf("ActiveKeysetID: %v", err)
	}
	if resp.KeysetID != [8]byte(active) {
		t.Fatalf("got keyset_id %x, want the mint's active keyset %x", resp.KeysetID, active)
	}
	if resp.KeysetID == ([8]byte{}) {
		t.Fatal("expected a non-zero keyset_id in the response")
	}
}

func TestHandleRequestIsIdempotent(t *testing.T) {
	s, _ := newTestServer(t)
	req := sv2.MintQuoteRequest{
		Amount:        10,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(2)),
		LockingPubKey: [33]byte(validLockingKey(t)),
	}
	body1, _ := s.handleRequest(req.Encode())
	body2, _ := s.handleRequest(req.Encode())

	resp1, _ := sv2.DecodeMintQuoteResponse(body1)
	resp2, _ := sv2.DecodeMintQuoteResponse(body2)
	if resp1.QuoteID != resp2.QuoteID {
		t.Fatalf("expected the same quote_id on resubmission, got %q and %q", resp1.QuoteID, resp2.QuoteID)
	}
}

func TestHandleRequestRejectsWrongUnit(t *testing.T) {
	s, _ := newTestServer(t)
	req := sv2.MintQuoteRequest{
		Amount:        10,
		Unit:          "SAT",
		ShareHash:     [32]byte(testHash(3)),
		LockingPubKey: [33]byte(validLockingKey(t)),
	}
	body, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteError {
		t.Fatalf("got msg type %#x, want MintQuoteError", msgType)
	}
	errResp, err := sv2.DecodeMintQuoteError(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeBadUnit {
		t.Fatalf("got code %d, want %d", errResp.Code, codeBadUnit)
	}
}

func TestHandleRequestRejectsZeroAmount(t *testing.T) {
	s, _ := newTestServer(t)
	req := sv2.MintQuoteRequest{
		Amount:        0,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(4)),
		LockingPubKey: [33]byte(validLockingKey(t)),
	}
	_, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteError {
		t.Fatalf("got msg type %#x, want MintQuoteError", msgType)
	}
}

func TestHandleRequestRejectsInvalidLockingKey(t *testing.T) {
	s, _ := newTestServer(t)
	var badKey [33]byte // all zeros is not a valid compressed point
	req := sv2.MintQuoteRequest{
		Amount:        10,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(5)),
		LockingPubKey: badKey,
	}
	body, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteError {
		t.Fatalf("got msg type %#x, want MintQuoteError", msgType)
	}
	errResp, err := sv2.DecodeMintQuoteError(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeBadLockingKey {
		t.Fatalf("got code %d, want %d", errResp.Code, codeBadLockingKey)
	}
}

func TestHandleRequestRejectsUnknownKeyset(t *testing.T) {
	s, store := newTestServer(t)
	active, err := store.ActiveKeysetID()
	if err != nil {
		t.Fatalf("ActiveKeysetID: %v", err)
	}
	wrong := [8]byte(active)
	wrong[0] ^= 0xFF
	req := sv2.MintQuoteRequest{
		Amount:        10,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(6)),
		LockingPubKey: [33]byte(validLockingKey(t)),
		KeysetID:      &wrong,
	}
	body, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteError {
		t.Fatalf("got msg type %#x, want MintQuoteError", msgType)
	}
	errResp, err := sv2.DecodeMintQuoteError(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeBadKeyset {
		t.Fatalf("got code %d, want %d", errResp.Code, codeBadKeyset)
	}
}

func TestHandleRequestAcceptsPinnedActiveKeyset(t *testing.T) {
	s, store := newTestServer(t)
	active, err := store.ActiveKeysetID()
	if err != nil {
		t.Fatalf("ActiveKeysetID: %v", err)
	}
	pinned := [8]byte(active)
	req := sv2.MintQuoteRequest{
		Amount:        10,
		Unit:          "HASH",
		ShareHash:     [32]byte(testHash(7)),
		LockingPubKey: [33]byte(validLockingKey(t)),
		KeysetID:      &pinned,
	}
	_, msgType := s.handleRequest(req.Encode())
	if msgType != sv2.MsgTypeMintQuoteResponse {
		t.Fatalf("got msg type %#x, want MintQuoteResponse", msgType)
	}
}
