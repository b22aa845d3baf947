package emv

import (
	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
)

// INS_GET_PROCESSING_OPTIONS starts the EMV transaction flow (CLA 80).
const INS_GET_PROCESSING_OPTIONS iso7816.InsCode = 0xA8

// emptyPDOLData is the Command Template (83) with no PDOL values.
var emptyPDOLData = []byte{0x83, 0x00}

func init() {
	iso7816.RegisterInstruction(INS_GET_PROCESSING_OPTIONS, "GET PROCESSING OPTIONS")
}

// GetProcessingOptions builds GPO with an empty command template:
// 80 A8 00 00 02 83 00 00.
func GetProcessingOptions() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(
		iso7816.ProprietaryClass,
		iso7816.MustInstruction(INS_GET_PROCESSING_OPTIONS),
		0x00, 0x00,
		emptyPDOLData,
		iso7816.MaxShortLe,
	)
}
