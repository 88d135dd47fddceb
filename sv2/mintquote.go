package sv2

import "encoding/binary"

// MintQuoteRequest carries a share's quote request from Pool to Mint
// (type 0x80). unit is always "HASH" in the current deployment.
// share_hash is the sole correlation key.
type MintQuoteRequest struct {
	Amount        uint64
	Unit          STR0_255
	ShareHash     [32]byte
	LockingPubKey [33]byte
	KeysetID      *[8]byte // optional, 1-byte presence prefix on the wire
}

func (m MintQuoteRequest) Encode() []byte {
	unit := m.Unit.Serialize()
	size := 8 + len(unit) + 32 + 33 + 1
	if m.KeysetID != nil {
		size += 8
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], m.Amount)
	off += 8
	copy(buf[off:], unit)
	off += len(unit)
	copy(buf[off:off+32], m.ShareHash[:])
	off += 32
	copy(buf[off:off+33], m.LockingPubKey[:])
	off += 33
	if m.KeysetID != nil {
		buf[off] = 1
		off++
		copy(buf[off:off+8], m.KeysetID[:])
	} else {
		buf[off] = 0
	}
	return buf
}

func DecodeMintQuoteRequest(data []byte) (MintQuoteRequest, error) {
	var m MintQuoteRequest
	if len(data) < 8 {
		return m, ErrTruncatedMessage
	}
	off := 0
	m.Amount = binary.LittleEndian.Uint64(data[off:])
	off += 8

	unit, n, err := ParseSTR0_255(data[off:])
	if err != nil {
		return m, err
	}
	m.Unit = unit
	off += n

	if len(data[off:]) < 32+33+1 {
		return m, ErrTruncatedMessage
	}
	copy(m.ShareHash[:], data[off:off+32])
	off += 32
	copy(m.LockingPubKey[:], data[off:off+33])
	off += 33

	present := data[off]
	off++
	if present == 1 {
		if len(data[off:]) < 8 {
			return m, ErrTruncatedMessage
		}
		var id [8]byte
		copy(id[:], data[off:off+8])
		m.KeysetID = &id
	}
	return m, nil
}

// MintQuoteResponse is the Mint's successful reply (type 0x81).
type MintQuoteResponse struct {
	ShareHash [32]byte
	QuoteID   STR0_255
	Amount    uint64
	KeysetID  [8]byte
	ExpiresAt *uint64 // optional, 1-byte presence prefix
}

func (m MintQuoteResponse) Encode() []byte {
	quoteID := m.QuoteID.Serialize()
	size := 32 + len(quoteID) + 8 + 8 + 1
	if m.ExpiresAt != nil {
		size += 8
	}
	buf := make([]byte, size)
	off := 0
	copy(buf[off:off+32], m.ShareHash[:])
	off += 32
	copy(buf[off:], quoteID)
	off += len(quoteID)
	binary.LittleEndian.PutUint64(buf[off:], m.Amount)
	off += 8
	copy(buf[off:off+8], m.KeysetID[:])
	off += 8
	if m.ExpiresAt != nil {
		buf[off] = 1
		off++
		binary.LittleEndian.PutUint64(buf[off:], *m.ExpiresAt)
	} else {
		buf[off] = 0
	}
	return buf
}

func DecodeMintQuoteResponse(data []byte) (MintQuoteResponse, error) {
	var m MintQuoteResponse
	if len(data) < 32 {
		return m, ErrTruncatedMessage
	}
	off := 0
	copy(m.ShareHash[:], data[off:off+32])
	off += 32

	quoteID, n, err := ParseSTR0_255(data[off:])
	if err != nil {
		return m, err
	}
	m.QuoteID = quoteID
	off += n

	if len(data[off:]) < 8+8+1 {
		return m, ErrTruncatedMessage
	}
	m.Amount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(m.KeysetID[:], data[off:off+8])
	off += 8

	present := data[off]
	off++
	if present == 1 {
		if len(data[off:]) < 8 {
			return m, ErrTruncatedMessage
		}
		v := binary.LittleEndian.Uint64(data[off:])
		m.ExpiresAt = &v
	}
	return m, nil
}

// MintQuoteError is the Mint's failure reply (type 0x82).
type MintQuoteError struct {
	ShareHash [32]byte
	Code      uint16
	Message   STR0_255
}

func (m MintQuoteError) Encode() []byte {
	msg := m.Message.Serialize()
	buf := make([]byte, 32+2+len(msg))
	off := 0
	copy(buf[off:off+32], m.ShareHash[:])
	off += 32
	binary.LittleEndian.PutUint16(buf[off:], m.Code)
	off += 2
	copy(buf[off:], msg)
	return buf
}

func DecodeMintQuoteError(data []byte) (MintQuoteError, error) {
	var m MintQuoteError
	if len(data) < 32+2 {
		return m, ErrTruncatedMessage
	}
	off := 0
	copy(m.ShareHash[:], data[off:off+32])
	off += 32
	m.Code = binary.LittleEndian.Uint16(data[off:])
	off += 2

	msg, _, err := ParseSTR0_255(data[off:])
	if err != nil {
		return m, err
	}
	m.Message = msg
	return m, nil
}
