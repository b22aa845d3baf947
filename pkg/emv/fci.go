// Package emv holds the payment-system (EMV Book 1/3) pieces the identity
// reader needs on top of ISO 7816: the GET PROCESSING OPTIONS command, the
// data-object tags it looks for, and interpretation of the FCI returned by
// SELECT.
package emv

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// FILE CONTROL INFORMATION (FCI) returned by SELECT on an EMV application:
//
//	6F  FCI Template
//	    84  DF Name
//	    A5  FCI Proprietary Template
//	        50    Application Label
//	        9F12  Application Preferred Name

// FCI is the subset of the SELECT response the reader uses.
type FCI struct {
	ApplicationLabel []byte
	PreferredName    []byte
}

// ParseFCI decodes a well-formed FCI. Data without the 6F wrapper is
// accepted as the template content.
func ParseFCI(data []byte) (*FCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, TagFCITemplate) {
		packets = packets[0].TLVs
	}

	fci := &FCI{}
	for _, p := range packets {
		if !strings.EqualFold(p.Tag, TagFCIProprietary) {
			continue
		}
		for _, inner := range p.TLVs {
			switch strings.ToUpper(inner.Tag) {
			case TagApplicationLabel:
				fci.ApplicationLabel = inner.Value
			case TagPreferredName:
				fci.PreferredName = inner.Value
			}
		}
	}

	return fci, nil
}

// ApplicationLabel extracts the application label from SELECT response data.
// The structured FCI is tried first, falling back to the preferred name when
// it has no label. Otherwise, as for cards with a malformed FCI, a tolerant
// scan for tag 50 is made. The empty string means no label.
func ApplicationLabel(data []byte) string {
	if fci, err := ParseFCI(data); err == nil {
		if label := labelText(fci.ApplicationLabel); label != "" {
			return label
		}
		if name := labelText(fci.PreferredName); name != "" {
			return name
		}
	}

	if v, ok := tlv.Find(data, 0x50); ok {
		return labelText(v)
	}
	return ""
}

func labelText(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}
