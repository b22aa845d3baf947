package emv

import (
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/bits"
)

// FormatExpiry renders an Application Expiration Date (YYMMDD, BCD) as MM/YY.
// Each byte is read as two BCD digits, so 0x27 0x12 gives "12/27", not the
// decimal byte values 39 and 18. ok is false, and no expiry is reported,
// when fewer than 3 bytes are given or the year or month byte is not valid
// BCD (a nibble above 9).
func FormatExpiry(b []byte) (string, bool) {
	if len(b) < 3 {
		return "", false
	}

	yt, yu, okY := bits.BCD(b[0])
	mt, mu, okM := bits.BCD(b[1])
	if !okY || !okM {
		return "", false
	}

	return fmt.Sprintf("%d%d/%d%d", mt, mu, yt, yu), true
}
