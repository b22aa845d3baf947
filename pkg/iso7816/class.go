package iso7816

import (
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/bits"
)

// Class Byte (CLA) according to ISO/IEC 7816-4.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 5: Command chaining.
// Bits 2-1: logical channel 0-3 (first interindustry encoding).
//
// Payment-style commands such as GET PROCESSING OPTIONS live in the
// proprietary range (0x80) and are passed through unchanged. The reader
// never opens further logical channels nor uses secure messaging, so
// neither is encoded here.

// Class represents the CLA byte of a command.
type Class struct {
	Raw           byte
	IsProprietary bool
	IsChained     bool
	Channel       uint8 // Logical channel number (0-3)
}

var (
	// InterindustryClass is CLA 0x00: basic channel, no SM, no chaining.
	InterindustryClass = Class{Raw: 0x00}

	// ProprietaryClass is CLA 0x80, used by EMV payment commands.
	ProprietaryClass = Class{Raw: 0x80, IsProprietary: true}
)

// Encode converts the Class to its byte representation.
func (c Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}
	if c.Channel > 3 {
		return 0, fmt.Errorf("channel %d out of range (max 3)", c.Channel)
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}
	return bits.PutRange(res, 2, 1, c.Channel), nil
}

// String returns a short label of the class range.
func (c Class) String() string {
	if c.IsProprietary {
		return fmt.Sprintf("Proprietary (0x%02X)", c.Raw)
	}
	return fmt.Sprintf("Interindustry (Ch %d)", c.Channel)
}
