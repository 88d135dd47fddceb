// Package sv2 implements the wire framing and message codecs hashpool adds
// on top of the upstream Stratum V2 mining sub-protocol: the two extension
// messages carried on the mining connection and the three-message
// mint-quote sub-protocol between Pool and Mint. Frame header layout and
// the length-prefixed string convention follow the upstream SV2 wire
// format.
package sv2

import (
	"encoding/binary"
	"errors"
)

// Message type bytes. Mining passthrough types are documented here only for
// the fields hashpool reads off the wire; the upstream SV2 mining handlers
// own their encode/decode.
const (
	MsgTypeSubmitSharesExtended uint8 = 0x1b
	MsgTypeSubmitSharesSuccess  uint8 = 0x1c
	MsgTypeSubmitSharesError    uint8 = 0x1d

	// Extension messages, channel-scoped, delivered out-of-band of the
	// standard SubmitSharesSuccess path.
	MsgTypeMintQuoteNotification uint8 = 0xC0
	MsgTypeMintQuoteFailure      uint8 = 0xC1

	// Mint-quote sub-protocol, connection-scoped.
	MsgTypeMintQuoteRequest  uint8 = 0x80
	MsgTypeMintQuoteResponse uint8 = 0x81
	MsgTypeMintQuoteError    uint8 = 0x82
)

// ExtensionRangeLow and ExtensionRangeHigh bound the reserved message-type
// range a Translator must dispatch to its extension handler.
const (
	ExtensionRangeLow  uint8 = 0xC0
	ExtensionRangeHigh uint8 = 0xFF
)

// HeaderSize is the size of the frame header in bytes.
const HeaderSize = 6

// Errors returned while framing or decoding messages. Wrong-length fixed
// fields (share_hash, locking_pubkey, keyset_id) surface as
// ErrTruncatedMessage since every field is length-checked against the
// remaining payload during decode.
var (
	ErrInvalidHeader    = errors.New("sv2: invalid frame header")
	ErrTruncatedMessage = errors.New("sv2: truncated message")
)

// FrameHeader is the SV2 frame header: [extension_type: u16] [msg_type: u8]
// [msg_length: u24], all little-endian.
type FrameHeader struct {
	ExtensionType uint16
	MsgType       uint8
	MsgLength     uint32 // 24-bit on the wire
}

// Serialize writes the header to its 6-byte wire form.
func (h FrameHeader) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.ExtensionType)
	buf[2] = h.MsgType
	buf[3] = byte(h.MsgLength & 0xFF)
	buf[4] = byte((h.MsgLength >> 8) & 0xFF)
	buf[5] = byte((h.MsgLength >> 16) & 0xFF)
	return buf
}

// ParseHeader parses a 6-byte frame header.
func ParseHeader(data []byte) (FrameHeader, error) {
	var h FrameHeader
	if len(data) < HeaderSize {
		return h, ErrInvalidHeader
	}
	h.ExtensionType = binary.LittleEndian.Uint16(data[0:2])
	h.MsgType = data[2]
	h.MsgLength = uint32(data[3]) | uint32(data[4])<<8 | uint32(data[5])<<16
	return h, nil
}

// IsExtensionMessage reports whether a message type byte falls in the
// reserved extension range the Translator must route to its handler.
func IsExtensionMessage(msgType uint8) bool {
	return msgType >= ExtensionRangeLow
}
