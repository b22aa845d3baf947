package iso7816

import (
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/bits"
)

// Status Word logic (ISO/IEC 7816-4 §5.6).
//
// Most SWs are static, but a few ranges carry data:
//   - '61XX': normal processing, XX bytes available through GET RESPONSE.
//   - '6CXX': wrong Le, XX is the exact length.
//   - '63CX': warning with a counter in the low nibble (e.g. PIN tries).

// StatusWord is the two-byte trailer (SW1-SW2) of every response.
type StatusWord uint16

// NewStatusWord builds a StatusWord from SW1 and SW2.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the high byte.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the low byte.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsNormal reports exactly 9000.
func (sw StatusWord) IsNormal() bool {
	return sw == SW_NO_ERROR
}

// IsCounter reports a 63CX counter warning.
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bits.GetRange(sw.SW2(), 8, 5) == 0x0C
}

// String returns the constant name for known words and the hex value otherwise.
func (sw StatusWord) String() string {
	if name, ok := swNames[sw]; ok {
		return name
	}
	return fmt.Sprintf("%04X", uint16(sw))
}

// Verbose returns a human-readable description.
func (sw StatusWord) Verbose() string {
	sw2 := sw.SW2()

	switch {
	case sw.SW1() == 0x61:
		return fmt.Sprintf("Process completed, %d bytes available", sw2)
	case sw.SW1() == 0x6C:
		return fmt.Sprintf("Wrong length, correct Le is %d", sw2)
	case sw.IsCounter():
		return fmt.Sprintf("Warning: State changed, counter = %d", bits.GetRange(sw2, 4, 1))
	}

	if name, ok := swNames[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), name)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.category())
}

func (sw StatusWord) category() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x66:
		return "Execution Error: Security issue"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Status words a contactless read session commonly meets.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_NO_INFO        StatusWord = 0x6200
	SW_WARN_EOF_REACHED    StatusWord = 0x6282
	SW_WARN_FCI_BAD_FORMAT StatusWord = 0x6284

	SW_ERR_WRONG_LENGTH            StatusWord = 0x6700
	SW_ERR_CMD_INCOMPATIBLE_FILE   StatusWord = 0x6981
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_COND_OF_USE_NOT_SAT     StatusWord = 0x6985
	SW_ERR_CMD_NOT_ALLOWED_NO_EF   StatusWord = 0x6986
	SW_ERR_FUNC_NOT_SUPPORTED      StatusWord = 0x6A81
	SW_ERR_FILE_NOT_FOUND          StatusWord = 0x6A82
	SW_ERR_RECORD_NOT_FOUND        StatusWord = 0x6A83
	SW_ERR_INCORRECT_PARAMS_P1P2   StatusWord = 0x6A86
	SW_ERR_REF_DATA_NOT_FOUND      StatusWord = 0x6A88
	SW_ERR_WRONG_P1P2              StatusWord = 0x6B00
	SW_ERR_INS_INVALID             StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED       StatusWord = 0x6E00
	SW_ERR_UNKNOWN                 StatusWord = 0x6F00
)

var swNames = map[StatusWord]string{
	SW_NO_ERROR:                    "SW_NO_ERROR",
	SW_WARN_NO_INFO:                "SW_WARN_NO_INFO",
	SW_WARN_EOF_REACHED:            "SW_WARN_EOF_REACHED",
	SW_WARN_FCI_BAD_FORMAT:         "SW_WARN_FCI_BAD_FORMAT",
	SW_ERR_WRONG_LENGTH:            "SW_ERR_WRONG_LENGTH",
	SW_ERR_CMD_INCOMPATIBLE_FILE:   "SW_ERR_CMD_INCOMPATIBLE_FILE",
	SW_ERR_SECURITY_STATUS_NOT_SAT: "SW_ERR_SECURITY_STATUS_NOT_SAT",
	SW_ERR_COND_OF_USE_NOT_SAT:     "SW_ERR_COND_OF_USE_NOT_SAT",
	SW_ERR_CMD_NOT_ALLOWED_NO_EF:   "SW_ERR_CMD_NOT_ALLOWED_NO_EF",
	SW_ERR_FUNC_NOT_SUPPORTED:      "SW_ERR_FUNC_NOT_SUPPORTED",
	SW_ERR_FILE_NOT_FOUND:          "SW_ERR_FILE_NOT_FOUND",
	SW_ERR_RECORD_NOT_FOUND:        "SW_ERR_RECORD_NOT_FOUND",
	SW_ERR_INCORRECT_PARAMS_P1P2:   "SW_ERR_INCORRECT_PARAMS_P1P2",
	SW_ERR_REF_DATA_NOT_FOUND:      "SW_ERR_REF_DATA_NOT_FOUND",
	SW_ERR_WRONG_P1P2:              "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:             "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED:       "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:                 "SW_ERR_UNKNOWN",
}
