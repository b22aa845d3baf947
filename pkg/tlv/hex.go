package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex builds a byte slice from hex fragments. Whitespace is ignored so test
// vectors can be written as "00 A4 04 00". It panics on invalid input and
// is meant for fixtures and constants.
func Hex(parts ...string) []byte {
	clean := strings.Join(strings.Fields(strings.Join(parts, "")), "")

	data, err := hex.DecodeString(clean)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", clean, err))
	}
	return data
}

// UpperHex renders b as upper-case hex without separators.
func UpperHex(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// MakeSafeASCII replaces every byte outside printable ASCII with '.'.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
