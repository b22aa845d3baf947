package iso7816

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

func mustReadRecord(t *testing.T, sfi, rec byte) *CommandAPDU {
	t.Helper()
	cmd, err := ReadRecord(InterindustryClass, sfi, rec)
	if err != nil {
		t.Fatalf("ReadRecord(%d, %d): %v", sfi, rec, err)
	}
	return cmd
}

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name: "Select by AID A000000077AB01",
			cmd:  SelectByAID(InterindustryClass, tlv.Hex("A000000077AB01")),
			expected: tlv.Hex(
				"00 A4 04 00", // P1=04 (DF name), P2=00 (first/only, FCI)
				"07",
				"A0 00 00 00 77 AB 01",
				// no Le, T=0 compatible
			),
		},
		{
			name: "Select by AID 1PAY.SYS.DDF01",
			cmd:  SelectByAID(InterindustryClass, []byte("1PAY.SYS.DDF01")),
			expected: tlv.Hex(
				"00 A4 04 00 0E",
				"31 50 41 59 2E 53 59 53 2E 44 44 46 30 31",
			),
		},
		{
			name:     "Read Record 1 of SFI 1",
			cmd:      mustReadRecord(t, 1, 1),
			expected: tlv.Hex("00 B2 01 0C 00"),
		},
		{
			name:     "Read Record 2 of SFI 2",
			cmd:      mustReadRecord(t, 2, 2),
			expected: tlv.Hex("00 B2 02 14 00"),
		},
		{
			name:     "Read Record 1 of SFI 3",
			cmd:      mustReadRecord(t, 3, 1),
			expected: tlv.Hex("00 B2 01 1C 00"),
		},
		{
			name:     "Read Record 1 of the largest SFI",
			cmd:      mustReadRecord(t, MaxSFI, 1),
			expected: tlv.Hex("00 B2 01 F4 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Failed to encode bytes: %v", err)
			}

			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %s\nGot:      %s",
					hex.EncodeToString(tt.expected),
					hex.EncodeToString(got))
			}
		})
	}
}

func TestReadRecordRejectsSFI(t *testing.T) {
	for _, sfi := range []byte{31, 0x40, 0xFF} {
		if _, err := ReadRecord(InterindustryClass, sfi, 1); !errors.Is(err, ErrInvalidSFI) {
			t.Errorf("ReadRecord(sfi=%d) error = %v, want ErrInvalidSFI", sfi, err)
		}
	}
}
