package iso7816

import (
	"testing"
)

func TestClass_Encode(t *testing.T) {
	tests := []struct {
		name    string
		class   Class
		want    byte
		wantErr bool
	}{
		{"Basic channel", InterindustryClass, 0x00, false},
		{"EMV Proprietary 80", ProprietaryClass, 0x80, false},
		{"Chained on channel 3", Class{IsChained: true, Channel: 3}, 0b0_0_00_1_11, false},
		{"Channel 1", Class{Channel: 1}, 0x01, false},
		{"Channel 4 is not encodable", Class{Channel: 4}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.class.Encode()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Encode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Encode() = %08b, want %08b", got, tt.want)
			}
		})
	}
}

func TestClass_String(t *testing.T) {
	if got := ProprietaryClass.String(); got != "Proprietary (0x80)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Class{Channel: 2}).String(); got != "Interindustry (Ch 2)" {
		t.Errorf("String() = %q", got)
	}
}
