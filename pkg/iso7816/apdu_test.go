package iso7816

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

func TestCommandAPDU_Encoding(t *testing.T) {
	insSelect := MustInstruction(INS_SELECT)
	insRead := MustInstruction(INS_READ_RECORD)
	cls := InterindustryClass

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected string
	}{
		{
			name:     "Case 1: Header Only",
			cmd:      NewCommandAPDU(cls, insSelect, 0x01, 0x02, nil, 0),
			expected: "00A40102",
		},
		{
			name:     "Case 3 Short: Lc + Data",
			cmd:      NewCommandAPDU(cls, insSelect, 0x04, 0x00, []byte{0xA0, 0x00}, 0),
			expected: "00A4040002A000",
		},
		{
			name:     "Case 2 Short: Le=256 encodes as 00",
			cmd:      NewCommandAPDU(cls, insRead, 0x00, 0x00, nil, MaxShortLe),
			expected: "00B2000000",
		},
		{
			name:     "Case 4 Short: Data and Le",
			cmd:      NewCommandAPDU(cls, insSelect, 0x00, 0x00, []byte{0x01}, 10),
			expected: "00A4000001010A",
		},
		{
			name:     "Case 3 Extended: Data > MaxShortLc",
			cmd:      NewCommandAPDU(cls, insSelect, 0x00, 0x00, make([]byte, 260), 0),
			expected: "00A40000000104" + hex.EncodeToString(make([]byte, 260)),
		},
		{
			name:     "Case 2 Extended: Le=65536",
			cmd:      NewCommandAPDU(cls, insRead, 0x00, 0x00, nil, MaxExtendedLe),
			expected: "00B20000000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBytes, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Encoding failed: %v", err)
			}
			gotHex := strings.ToUpper(hex.EncodeToString(gotBytes))
			if gotHex != strings.ToUpper(tt.expected) {
				t.Errorf("Mismatch\nExpected: %.40s...\nGot:      %.40s...", strings.ToUpper(tt.expected), gotHex)
			}
		})
	}
}

func TestCommandAPDU_InvalidLengths(t *testing.T) {
	ins := MustInstruction(INS_READ_RECORD)

	if _, err := NewCommandAPDU(InterindustryClass, ins, 0, 0, nil, -1).Bytes(); err == nil {
		t.Error("negative Ne should not encode")
	}
	if _, err := NewCommandAPDU(InterindustryClass, ins, 0, 0, nil, MaxExtendedLe+1).Bytes(); err == nil {
		t.Error("Ne above 65536 should not encode")
	}
}

func TestParseResponseAPDU(t *testing.T) {
	raw := tlv.Hex("010203 9000")
	resp, err := ParseResponseAPDU(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !bytes.Equal(resp.Data, []byte{1, 2, 3}) {
		t.Errorf("Wrong data: got %X", resp.Data)
	}
	if resp.Status != SW_NO_ERROR {
		t.Errorf("Wrong status: got %04X", uint16(resp.Status))
	}
	if !bytes.Equal(resp.Bytes(), raw) {
		t.Errorf("Bytes() = %X, want %X", resp.Bytes(), raw)
	}
}

func TestParseResponseAPDU_TooShort(t *testing.T) {
	_, err := ParseResponseAPDU([]byte{0x90})
	if !errors.Is(err, ErrShortResponse) {
		t.Errorf("expected ErrShortResponse, got %v", err)
	}
}

func TestCommandAPDU_String(t *testing.T) {
	cmd, err := ReadRecord(InterindustryClass, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := "Interindustry (Ch 0) READ RECORD | P1: 02, P2: 0C | Lc: 0 | Le: 256"
	if got := cmd.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNewInstruction_Reserved(t *testing.T) {
	for _, ins := range []InsCode{0x61, 0x6C, 0x90} {
		if _, err := NewInstruction(ins); err == nil {
			t.Errorf("INS %02X should be rejected", byte(ins))
		}
	}
	if i, err := NewInstruction(INS_GET_RESPONSE); err != nil || i.Raw != INS_GET_RESPONSE {
		t.Errorf("NewInstruction(C0) = %v, %v", i, err)
	}
}
