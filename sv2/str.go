package sv2

// STR0_255 is a string with a 1-byte length prefix, max 255 bytes, as used
// throughout the SV2 wire format for quote_id, error messages, and similar
// short fields.
type STR0_255 string

// Serialize encodes the string with its length prefix. Callers do not
// length-check beforehand; strings longer than 255 bytes are truncated to
// their first 255 bytes rather than panic.
func (s STR0_255) Serialize() []byte {
	str := string(s)
	if len(str) > 255 {
		str = str[:255]
	}
	buf := make([]byte, 1+len(str))
	buf[0] = byte(len(str))
	copy(buf[1:], str)
	return buf
}

// ParseSTR0_255 reads a length-prefixed string, returning the string and the
// number of bytes consumed.
func ParseSTR0_255(data []byte) (STR0_255, int, error) {
	if len(data) < 1 {
		return "", 0, ErrTruncatedMessage
	}
	length := int(data[0])
	if len(data) < 1+length {
		return "", 0, ErrTruncatedMessage
	}
	return STR0_255(data[1 : 1+length]), 1 + length, nil
}
