package emv

import (
	"bytes"
	"testing"

	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

func TestGetProcessingOptions(t *testing.T) {
	got, err := GetProcessingOptions().Bytes()
	if err != nil {
		t.Fatalf("encoding failed: %v", err)
	}

	want := tlv.Hex("80 A8 00 00", "02", "83 00", "00")
	if !bytes.Equal(got, want) {
		t.Errorf("GPO = %X, want %X", got, want)
	}

	if name := INS_GET_PROCESSING_OPTIONS.String(); name != "GET PROCESSING OPTIONS" {
		t.Errorf("instruction name = %q", name)
	}
}

func TestFormatExpiry(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		want   string
		wantOK bool
	}{
		{"December 2027", tlv.Hex("27 12 31"), "12/27", true},
		{"Leading zeros", tlv.Hex("05 03 31"), "03/05", true},
		{"Last century digits", tlv.Hex("99 01 31"), "01/99", true},
		{"Too short", tlv.Hex("27 12"), "", false},
		{"Not BCD", tlv.Hex("1B 12 31"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatExpiry(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FormatExpiry(%X) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
