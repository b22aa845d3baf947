package iso7816

import (
	"errors"
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/bits"
)

// READ RECORD (INS 'B2', ISO 7816-4 §11.3.3).
//
// P1: record number.
// P2: bits 8-4 carry the SFI (0 = current EF); bits 3-1 the reference mode.
// Mode '100' reads the record whose number is P1.

// MaxSFI is the largest short file identifier encodable in P2; 31 is
// reserved.
const MaxSFI = 30

const readRecordByNumber = 0b100

// ErrInvalidSFI is returned for a short file identifier P2 cannot carry.
var ErrInvalidSFI = errors.New("invalid short file identifier")

// ReadRecord reads record recordNumber of file sfi: 00 B2 rec (sfi<<3|04) 00.
// It is a case 2 command: Le=256 so the encoder appends '00', asking the
// card for the whole record.
func ReadRecord(cla Class, sfi byte, recordNumber byte) (*CommandAPDU, error) {
	if sfi > MaxSFI {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidSFI, sfi, MaxSFI)
	}
	p2 := bits.PutRange(readRecordByNumber, 8, 4, sfi)
	return NewCommandAPDU(cla, MustInstruction(INS_READ_RECORD), recordNumber, p2, nil, MaxShortLe), nil
}
