// Package bits holds the small bit-level helpers used by the byte-layout code:
// CLA encoding, READ RECORD P2 construction, status word ranges and BCD
// dates.
//
// Bits are numbered 1 to 8 as in ISO/IEC 7816-4 tables (bit 1 is the least
// significant one).
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
// Out-of-range positions yield 0.
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// Set returns b with the n-th bit set.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// GetRange extracts the value held by bits high..low.
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11).
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// PutRange writes v into bits high..low of b. Bits of v that do not fit the
// range are dropped.
func PutRange(b byte, high, low uint, v byte) byte {
	if high < low || high > 8 || low < 1 {
		return b
	}

	width := high - low + 1
	mask := byte((1<<width)-1) << (low - 1)

	return (b &^ mask) | ((v << (low - 1)) & mask)
}

// BCD splits a packed binary-coded-decimal byte into its two digits.
// ok is false when either nibble is above 9.
func BCD(b byte) (tens, units byte, ok bool) {
	tens = GetRange(b, 8, 5)
	units = GetRange(b, 4, 1)
	return tens, units, tens <= 9 && units <= 9
}
