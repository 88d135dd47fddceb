package sv2

import "encoding/binary"

// SubmitSharesSuccess is the standard, unmodified SV2 acknowledgement
// returned immediately per share. Hashpool does not alter its
// layout; it is reproduced here only so the Pool bridge can construct and
// the Translator bridge can recognize it without importing the full
// upstream mining codec.
type SubmitSharesSuccess struct {
	ChannelID             uint32
	LastSequenceNumber    uint32
	NewSubmitsAccepted    uint32
	NewSharesSum          uint64
}

func (s SubmitSharesSuccess) Encode() []byte {
	buf := make([]byte, 4+4+4+8)
	binary.LittleEndian.PutUint32(buf[0:], s.ChannelID)
	binary.LittleEndian.PutUint32(buf[4:], s.LastSequenceNumber)
	binary.LittleEndian.PutUint32(buf[8:], s.NewSubmitsAccepted)
	binary.LittleEndian.PutUint64(buf[12:], s.NewSharesSum)
	return buf
}

func DecodeSubmitSharesSuccess(data []byte) (SubmitSharesSuccess, error) {
	var s SubmitSharesSuccess
	if len(data) < 4+4+4+8 {
		return s, ErrTruncatedMessage
	}
	s.ChannelID = binary.LittleEndian.Uint32(data[0:])
	s.LastSequenceNumber = binary.LittleEndian.Uint32(data[4:])
	s.NewSubmitsAccepted = binary.LittleEndian.Uint32(data[8:])
	s.NewSharesSum = binary.LittleEndian.Uint64(data[12:])
	return s, nil
}

// SubmitSharesError is the standard rejection response for invalid shares.
type SubmitSharesError struct {
	ChannelID      uint32
	SequenceNumber uint32
	ErrorCode      STR0_255
}

func (s SubmitSharesError) Encode() []byte {
	code := s.ErrorCode.Serialize()
	buf := make([]byte, 4+4+len(code))
	binary.LittleEndian.PutUint32(buf[0:], s.ChannelID)
	binary.LittleEndian.PutUint32(buf[4:], s.SequenceNumber)
	copy(buf[8:], code)
	return buf
}

func DecodeSubmitSharesError(data []byte) (SubmitSharesError, error) {
	var s SubmitSharesError
	if len(data) < 8 {
		return s, ErrTruncatedMessage
	}
	s.ChannelID = binary.LittleEndian.Uint32(data[0:])
	s.SequenceNumber = binary.LittleEndian.Uint32(data[4:])
	code, _, err := ParseSTR0_255(data[8:])
	if err != nil {
		return s, err
	}
	s.ErrorCode = code
	return s, nil
}

// SubmitSharesExtendedFields holds the two fields the current deployment
// embeds directly inside the upstream SubmitSharesExtended message: the
// locking_pubkey and share hash. A hardened rewrite would carry these as
// negotiated TLV extension fields instead; this type documents the
// schema-extension contract the Pool bridge depends on for the initial
// implementation.
type SubmitSharesExtendedFields struct {
	ChannelID      uint32
	SequenceNumber uint32
	JobID          uint32
	Nonce          uint32
	NTime          uint32
	Version        uint32
	LockingPubKey  [33]byte
	Hash           [32]byte
}

func (s SubmitSharesExtendedFields) Encode() []byte {
	buf := make([]byte, 4*6+33+32)
	off := 0
	for _, v := range []uint32{s.ChannelID, s.SequenceNumber, s.JobID, s.Nonce, s.NTime, s.Version} {
		binary.LittleEndian.PutUint32(buf[off:], v)
		off += 4
	}
	copy(buf[off:off+33], s.LockingPubKey[:])
	off += 33
	copy(buf[off:off+32], s.Hash[:])
	return buf
}

func DecodeSubmitSharesExtendedFields(data []byte) (SubmitSharesExtendedFields, error) {
	var s SubmitSharesExtendedFields
	const fixed = 4*6 + 33 + 32
	if len(data) < fixed {
		return s, ErrTruncatedMessage
	}
	off := 0
	vals := make([]*uint32, 6)
	vals[0], vals[1], vals[2] = &s.ChannelID, &s.SequenceNumber, &s.JobID
	vals[3], vals[4], vals[5] = &s.Nonce, &s.NTime, &s.Version
	for _, v := range vals {
		*v = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	copy(s.LockingPubKey[:], data[off:off+33])
	off += 33
	copy(s.Hash[:], data[off:off+32])
	return s, nil
}
