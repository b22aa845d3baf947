package iso7816

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
//   - Header: CLA, INS, P1, P2.
//   - Body:   [Lc + Data] [Le].
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: Header only.
// - Case 2: Header + Le.
// - Case 3: Header + Lc + Data.
// - Case 4: Header + Lc + Data + Le.
//
// Lc/Le are encoded on 1 byte (short) unless Nc > 255 or Ne > 256, in which
// case the extended form is used for both.
//
// RESPONSE APDU (R-APDU): [Data] SW1 SW2.

const (
	// MaxShortLc is the largest Nc encodable on one byte.
	MaxShortLc = 255

	// MaxShortLe is the largest Ne encodable on one byte (0x00 encodes 256).
	MaxShortLe = 256

	// MaxExtendedLc is the largest Nc in extended mode.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the largest Ne in extended mode (0x0000 encodes 65536).
	MaxExtendedLe = 65536
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a command from its parts.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the command into its wire form, picking short or extended
// length encoding from Nc and Ne.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data field too long: %d bytes", nc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("invalid expected length: %d", ne)
	}

	cla, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4+3+nc+3))
	buf.Write([]byte{cla, byte(c.Instruction.Raw), c.P1, c.P2})

	extended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if extended {
			buf.Write([]byte{0x00, byte(nc >> 8), byte(nc)})
		} else {
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !extended:
			// 256 wraps to 0x00.
			buf.WriteByte(byte(ne))
		default:
			// Case 2 extended needs the 00 marker that Lc would have carried.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			// 65536 wraps to 0x0000.
			buf.Write([]byte{byte(ne >> 8), byte(ne)})
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s %s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Class, c.Instruction.Raw, c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw card bytes into data and status word.
// The input must contain at least SW1 and SW2.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: length %d", ErrShortResponse, len(raw))
	}

	n := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:n:n],
		Status: NewStatusWord(raw[n], raw[n+1]),
	}, nil
}

// Bytes re-assembles the response as received from the card (Data || SW1 SW2).
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
