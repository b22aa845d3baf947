package iso7816

import (
	"fmt"
)

// Instruction Byte (INS) according to ISO/IEC 7816-4.
//
// Values 6X and 9X are reserved for procedure bytes and status words and
// are rejected.

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instructions used by the reader. Payment-specific instructions live in
// package emv.
const (
	INS_SELECT       InsCode = 0xA4
	INS_READ_RECORD  InsCode = 0xB2
	INS_GET_RESPONSE InsCode = 0xC0
)

var insNames = map[InsCode]string{
	INS_SELECT:       "SELECT",
	INS_READ_RECORD:  "READ RECORD",
	INS_GET_RESPONSE: "GET RESPONSE",
}

// RegisterInstruction names an instruction defined outside this package so
// that logs and traces can print it.
func RegisterInstruction(ins InsCode, name string) {
	insNames[ins] = name
}

func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(0x%02X)", byte(i))
}

// Instruction represents a validated INS byte.
type Instruction struct {
	Raw InsCode
}

// NewInstruction validates ins and returns its Instruction.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch byte(ins) & 0xF0 {
	case 0x60, 0x90:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{Raw: ins}, nil
}

// MustInstruction is NewInstruction for compile-time constants; it panics
// on a reserved value.
func MustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}
