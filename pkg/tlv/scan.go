// Package tlv holds the tolerant side of BER-TLV handling: a byte scan
// (Find) for records whose layout is unknown or damaged, and the hex
// helpers used by fixtures and logs. Well-formed templates are decoded with
// moov-io/bertlv where they are consumed (see pkg/emv).
package tlv

import (
	"errors"
)

var (
	// ErrTruncated means the buffer ends before the declared length field or value.
	ErrTruncated = errors.New("tlv: truncated")

	// ErrIndefiniteLength rejects the 0x80 form, which record data never uses.
	ErrIndefiniteLength = errors.New("tlv: indefinite length")

	// ErrLengthOverflow rejects long-form lengths wider than 4 bytes.
	ErrLengthOverflow = errors.New("tlv: length field too wide")
)

// maxLengthBytes bounds the long form so the decoded value fits an int on
// every platform.
const maxLengthBytes = 4

// ParseLength decodes the BER length field at the start of data.
//
// Short form: one byte below 0x80 is the length.
// Long form: 0x8N followed by N big-endian bytes ("82 01 00" is 256).
//
// size is the number of bytes the length field occupies.
func ParseLength(data []byte) (length, size int, err error) {
	if len(data) == 0 {
		return 0, 0, ErrTruncated
	}

	first := data[0]
	if first&0x80 == 0 {
		return int(first), 1, nil
	}

	n := int(first & 0x7F)
	switch {
	case n == 0:
		return 0, 0, ErrIndefiniteLength
	case n > maxLengthBytes:
		return 0, 0, ErrLengthOverflow
	case 1+n > len(data):
		return 0, 0, ErrTruncated
	}

	for _, b := range data[1 : 1+n] {
		length = length<<8 | int(b)
	}
	return length, 1 + n, nil
}

// Find scans data byte by byte for the first occurrence of tag (one or two
// bytes) followed by a length and a value that fit in the buffer, and
// returns that value.
//
// The scan does not follow the TLV structure: a tag pattern inside another
// value matches too. This is what makes it usable on partially parsed or
// proprietary records. Any inconsistent length ends the search with
// ok=false; Find never panics.
func Find(data []byte, tag ...byte) (value []byte, ok bool) {
	if len(tag) == 0 || len(tag) > 2 {
		return nil, false
	}

	for i := 0; i+len(tag) < len(data); i++ {
		if !matchTag(data[i:], tag) {
			continue
		}

		start := i + len(tag)
		length, size, err := ParseLength(data[start:])
		if err != nil {
			return nil, false
		}

		from := start + size
		to := from + length
		if to > len(data) || to < from {
			return nil, false
		}
		return data[from:to:to], true
	}

	return nil, false
}

func matchTag(data, tag []byte) bool {
	for j, b := range tag {
		if data[j] != b {
			return false
		}
	}
	return true
}
