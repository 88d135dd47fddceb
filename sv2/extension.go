package sv2

import "encoding/binary"

// MintQuoteNotification is sent by Pool to the originating downstream once a
// quote response arrives and is matched to its PendingShare (type 0xC0).
// Channel-scoped.
type MintQuoteNotification struct {
	ChannelID      uint32
	SequenceNumber uint32
	ShareHash      [32]byte
	QuoteID        STR0_255
	Amount         uint64
}

// Encode serializes a MintQuoteNotification to its wire payload (header not
// included; callers prepend a FrameHeader with MsgType
// MsgTypeMintQuoteNotification and MsgLength set to len(payload)).
func (m MintQuoteNotification) Encode() []byte {
	quoteID := m.QuoteID.Serialize()
	buf := make([]byte, 4+4+32+len(quoteID)+8)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], m.ChannelID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.SequenceNumber)
	off += 4
	copy(buf[off:off+32], m.ShareHash[:])
	off += 32
	copy(buf[off:], quoteID)
	off += len(quoteID)
	binary.LittleEndian.PutUint64(buf[off:], m.Amount)
	return buf
}

// DecodeMintQuoteNotification parses a MintQuoteNotification payload.
func DecodeMintQuoteNotification(data []byte) (MintQuoteNotification, error) {
	var m MintQuoteNotification
	if len(data) < 4+4+32 {
		return m, ErrTruncatedMessage
	}
	off := 0
	m.ChannelID = binary.LittleEndian.Uint32(data[off:])
	off += 4
	m.SequenceNumber = binary.LittleEndian.Uint32(data[off:])
	off += 4
	copy(m.ShareHash[:], data[off:off+32])
	off += 32

	quoteID, n, err := ParseSTR0_255(data[off:])
	if err != nil {
		return m, err
	}
	m.QuoteID = quoteID
	off += n

	if len(data[off:]) < 8 {
		return m, ErrTruncatedMessage
	}
	m.Amount = binary.LittleEndian.Uint64(data[off:])
	return m, nil
}

// MintQuoteFailure is emitted when the hub never receives a matching
// response in time, or the Mint rejects a request (type 0xC1).
// Channel-scoped.
type MintQuoteFailure struct {
	ChannelID      uint32
	SequenceNumber uint32
	ShareHash      [32]byte
	ErrorMessage   STR0_255
}

func (m MintQuoteFailure) Encode() []byte {
	errMsg := m.ErrorMessage.Serialize()
	buf := make([]byte, 4+4+32+len(errMsg))
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], m.ChannelID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.SequenceNumber)
	off += 4
	copy(buf[off:off+32], m.ShareHash[:])
	off += 32
	copy(buf[off:], errMsg)
	return buf
}

func DecodeMintQuoteFailure(data []byte) (MintQuoteFailure, error) {
	var m MintQuoteFailure
	if len(data) < 4+4+32 {
		return m, ErrTruncatedMessage
	}
	off := 0
	m.ChannelID = binary.LittleEndian.Uint32(data[off:])
	off += 4
	m.SequenceNumber = binary.LittleEndian.Uint32(data[off:])
	off += 4
	copy(m.ShareHash[:], data[off:off+32])
	off += 32

	errMsg, _, err := ParseSTR0_255(data[off:])
	if err != nil {
		return m, err
	}
	m.ErrorMessage = errMsg
	return m, nil
}
