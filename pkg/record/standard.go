package record

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gregLibert/kiosk-reader/pkg/emv"
	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// decodeStandard scans an EMV record for the identity tags. Each tag is
// searched independently, so a damaged value for one of them does not hide
// the others.
func decodeStandard(data []byte) Identity {
	var id Identity

	if pan, ok := tlv.Find(data, emv.TagPAN...); ok && len(pan) > 0 {
		id.PAN = tlv.UpperHex(pan)
		id.CardID = id.PAN
	}

	if name, ok := tlv.Find(data, emv.TagCardholderName...); ok {
		id.HolderName = norm.NFC.String(strings.TrimSpace(strings.ToValidUTF8(string(name), "")))
	}

	if exp, ok := tlv.Find(data, emv.TagExpirationDate...); ok {
		if s, ok := emv.FormatExpiry(exp); ok {
			id.Expiry = s
		}
	}

	if id.CardID == "" {
		if iad, ok := tlv.Find(data, emv.TagIssuerApplicationData...); ok && len(iad) > 0 {
			id.CardID = tlv.UpperHex(iad)
		}
	}

	return id
}
