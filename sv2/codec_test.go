package sv2

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	cases := []FrameHeader{
		{ExtensionType: 0, MsgType: MsgTypeSubmitSharesExtended, MsgLength: 0},
		{ExtensionType: 0xC0, MsgType: MsgTypeMintQuoteNotification, MsgLength: 1234},
		{ExtensionType: 0xFFFF, MsgType: 0xFF, MsgLength: 0xFFFFFF},
	}
	for _, h := range cases {
		got, err := ParseHeader(h.Serialize())
		if err != nil {
			t.Fatalf("ParseHeader: %v", err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
		}
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		_, err := ParseHeader(make([]byte, n))
		if err != ErrInvalidHeader {
			t.Fatalf("len %d: got %v, want ErrInvalidHeader", n, err)
		}
	}
}

func TestIsExtensionMessage(t *testing.T) {
	if IsExtensionMessage(MsgTypeSubmitSharesExtended) {
		t.Fatal("mining message misclassified as extension")
	}
	if !IsExtensionMessage(MsgTypeMintQuoteNotification) || !IsExtensionMessage(MsgTypeMintQuoteFailure) {
		t.Fatal("extension messages not recognized")
	}
}

func TestSTR0_255RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 32, 255} {
		s := STR0_255(strings.Repeat("x", n))
		got, consumed, err := ParseSTR0_255(s.Serialize())
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		if got != s {
			t.Fatalf("len %d: got %q want %q", n, got, s)
		}
		if consumed != 1+n {
			t.Fatalf("len %d: consumed %d want %d", n, consumed, 1+n)
		}
	}
}

func TestSTR0_255SerializeTruncatesOverLong(t *testing.T) {
	s := STR0_255(strings.Repeat("y", 256))
	out := s.Serialize()
	if out[0] != 255 || len(out) != 256 {
		t.Fatalf("expected truncation to 255 bytes, got len prefix %d total %d", out[0], len(out))
	}
}

func TestParseSTR0_255Truncated(t *testing.T) {
	if _, _, err := ParseSTR0_255(nil); err != ErrTruncatedMessage {
		t.Fatalf("empty input: got %v", err)
	}
	if _, _, err := ParseSTR0_255([]byte{5, 'a', 'b'}); err != ErrTruncatedMessage {
		t.Fatalf("short body: got %v", err)
	}
}

func fixedHash(b byte) [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = b
	}
	return h
}

func fixedPubKey(b byte) [33]byte {
	var k [33]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func TestMintQuoteNotificationRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 255} {
		m := MintQuoteNotification{
			ChannelID:      7,
			SequenceNumber: 42,
			ShareHash:      fixedHash(0xAB),
			QuoteID:        STR0_255(strings.Repeat("q", n)),
			Amount:         123456789,
		}
		got, err := DecodeMintQuoteNotification(m.Encode())
		if err != nil {
			t.Fatalf("quote_id len %d: %v", n, err)
		}
		if got != m {
			t.Fatalf("quote_id len %d: got %+v want %+v", n, got, m)
		}
	}
}

func TestMintQuoteNotificationTruncated(t *testing.T) {
	m := MintQuoteNotification{ChannelID: 1, SequenceNumber: 2, ShareHash: fixedHash(1), QuoteID: "abc", Amount: 9}
	full := m.Encode()
	for _, n := range []int{0, 4, 8, 39} {
		if _, err := DecodeMintQuoteNotification(full[:n]); err != ErrTruncatedMessage {
			t.Fatalf("prefix len %d: got %v, want ErrTruncatedMessage", n, err)
		}
	}
}

func TestMintQuoteFailureRoundTrip(t *testing.T) {
	m := MintQuoteFailure{
		ChannelID:      3,
		SequenceNumber: 99,
		ShareHash:      fixedHash(0x11),
		ErrorMessage:   "hub backpressure",
	}
	got, err := DecodeMintQuoteFailure(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestMintQuoteRequestRoundTripWithoutKeysetID(t *testing.T) {
	m := MintQuoteRequest{
		Amount:        500,
		Unit:          "HASH",
		ShareHash:     fixedHash(0x22),
		LockingPubKey: fixedPubKey(0x03),
		KeysetID:      nil,
	}
	got, err := DecodeMintQuoteRequest(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.KeysetID != nil {
		t.Fatalf("expected nil KeysetID, got %v", got.KeysetID)
	}
	got.KeysetID = nil
	if got != m {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestMintQuoteRequestRoundTripWithKeysetID(t *testing.T) {
	id := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	m := MintQuoteRequest{
		Amount:        1,
		Unit:          "HASH",
		ShareHash:     fixedHash(0x33),
		LockingPubKey: fixedPubKey(0x02),
		KeysetID:      &id,
	}
	got, err := DecodeMintQuoteRequest(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.KeysetID == nil || *got.KeysetID != id {
		t.Fatalf("keyset id mismatch: got %v want %v", got.KeysetID, id)
	}
}

func TestMintQuoteRequestTruncated(t *testing.T) {
	id := [8]byte{9, 9, 9, 9, 9, 9, 9, 9}
	m := MintQuoteRequest{
		Amount:        10,
		Unit:          "HASH",
		ShareHash:     fixedHash(0x44),
		LockingPubKey: fixedPubKey(0x04),
		KeysetID:      &id,
	}
	full := m.Encode()
	for _, n := range []int{0, 4, 8 + 4, len(full) - 1} {
		if _, err := DecodeMintQuoteRequest(full[:n]); err == nil {
			t.Fatalf("prefix len %d: expected error, got nil", n)
		}
	}
}

func TestMintQuoteResponseRoundTripWithExpiry(t *testing.T) {
	expiry := uint64(1_800_000_000)
	m := MintQuoteResponse{
		ShareHash: fixedHash(0x55),
		QuoteID:   "quote-abc-123",
		Amount:    777,
		KeysetID:  [8]byte{1, 1, 1, 1, 1, 1, 1, 1},
		ExpiresAt: &expiry,
	}
	got, err := DecodeMintQuoteResponse(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExpiresAt == nil || *got.ExpiresAt != expiry {
		t.Fatalf("expires_at mismatch: got %v want %d", got.ExpiresAt, expiry)
	}
}

func TestMintQuoteResponseRoundTripWithoutExpiry(t *testing.T) {
	m := MintQuoteResponse{
		ShareHash: fixedHash(0x66),
		QuoteID:   "",
		Amount:    0,
		KeysetID:  [8]byte{},
		ExpiresAt: nil,
	}
	got, err := DecodeMintQuoteResponse(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Fatalf("expected nil ExpiresAt, got %v", got.ExpiresAt)
	}
}

func TestMintQuoteErrorRoundTrip(t *testing.T) {
	m := MintQuoteError{
		ShareHash: fixedHash(0x77),
		Code:      404,
		Message:   "quote not found",
	}
	got, err := DecodeMintQuoteError(m.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestMintQuoteErrorTruncated(t *testing.T) {
	m := MintQuoteError{ShareHash: fixedHash(0x88), Code: 1, Message: "x"}
	full := m.Encode()
	for _, n := range []int{0, 32, 33} {
		if _, err := DecodeMintQuoteError(full[:n]); err != ErrTruncatedMessage {
			t.Fatalf("prefix len %d: got %v, want ErrTruncatedMessage", n, err)
		}
	}
}

func TestSubmitSharesSuccessRoundTrip(t *testing.T) {
	s := SubmitSharesSuccess{ChannelID: 5, LastSequenceNumber: 6, NewSubmitsAccepted: 7, NewSharesSum: 8}
	got, err := DecodeSubmitSharesSuccess(s.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v want %+v", got, s)
	}
}

func TestSubmitSharesErrorRoundTrip(t *testing.T) {
	s := SubmitSharesError{ChannelID: 1, SequenceNumber: 2, ErrorCode: "invalid-share"}
	got, err := DecodeSubmitSharesError(s.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v want %+v", got, s)
	}
}

func TestSubmitSharesExtendedFieldsRoundTrip(t *testing.T) {
	s := SubmitSharesExtendedFields{
		ChannelID:      1,
		SequenceNumber: 2,
		JobID:          3,
		Nonce:          4,
		NTime:          5,
		Version:        6,
		LockingPubKey:  fixedPubKey(0x09),
		Hash:           fixedHash(0x0A),
	}
	got, err := DecodeSubmitSharesExtendedFields(s.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != s {
		t.Fatalf("got %+v want %+v", got, s)
	}
}

func TestSubmitSharesExtendedFieldsTruncated(t *testing.T) {
	s := SubmitSharesExtendedFields{Hash: fixedHash(1), LockingPubKey: fixedPubKey(2)}
	full := s.Encode()
	if _, err := DecodeSubmitSharesExtendedFields(full[:len(full)-1]); err != ErrTruncatedMessage {
		t.Fatalf("got %v, want ErrTruncatedMessage", err)
	}
}

func TestEncodeProducesDistinctBytesForDistinctValues(t *testing.T) {
	a := MintQuoteNotification{ChannelID: 1, ShareHash: fixedHash(1), QuoteID: "a", Amount: 1}
	b := MintQuoteNotification{ChannelID: 2, ShareHash: fixedHash(2), QuoteID: "b", Amount: 2}
	if bytes.Equal(a.Encode(), b.Encode()) {
		t.Fatal("distinct values encoded identically")
	}
}
