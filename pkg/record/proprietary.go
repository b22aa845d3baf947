package record

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Proprietary blob layout: any number of [DF xx][len][value] items, possibly
// interleaved with filler bytes. Values are text.
const proprietaryMarker = 0xDF

const (
	tagCardType   = 0xDF01
	tagHolderName = 0xDF02
	tagCardID     = 0xDF0A
)

func decodeProprietary(data []byte) Identity {
	var id Identity
	fields := map[string]string{}

	for i := 0; i < len(data)-2; {
		if data[i] != proprietaryMarker {
			i++
			continue
		}

		tag := uint16(data[i])<<8 | uint16(data[i+1])
		length := int(data[i+2])
		from := i + 3
		to := from + length

		if to > len(data) {
			id.Truncated = true
			break
		}

		if text, ok := displayText(data[from:to]); ok {
			switch tag {
			case tagHolderName:
				id.HolderName = text
				fields[KeyHolderName] = text
			case tagCardID:
				id.CardID = text
				fields[KeyCardID] = text
			case tagCardType:
				id.CardType = text
				fields[KeyCardType] = text
			}
		}

		i = to
	}

	if len(fields) > 0 {
		id.Additional = fields
	}
	return id
}

// displayText accepts a value only if, once trimmed, it is non-empty and made
// of letters, digits, whitespace and ".-_". Anything else is binary noise
// and must not reach a display field. Accepted text is NFC-normalized.
func displayText(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}

	s := norm.NFC.String(strings.TrimSpace(string(b)))
	if s == "" {
		return "", false
	}

	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case r == '.', r == '-', r == '_':
		default:
			return "", false
		}
	}
	return s, true
}
