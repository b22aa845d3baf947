// Package record turns the raw content of a card record into identity
// fields.
//
// Two record dialects are understood:
//   - Proprietary: a flat blob of DFxx-tagged values, found in SFI 1 record 1
//     of the kiosk's own cards.
//   - Standard: EMV BER-TLV records (tags 5A, 5F20, 5F24, 9F10), scanned
//     tolerantly.
//
// Which dialect applies is decided by the record location, not by sniffing
// the content.
package record

import (
	"fmt"
	"maps"
)

// Locator addresses one record: a short file identifier and a record number.
type Locator struct {
	SFI    byte
	Record byte
}

func (l Locator) String() string {
	return fmt.Sprintf("SFI:%d REC:%d", l.SFI, l.Record)
}

// DefaultLocators lists where identity data is conventionally stored, in
// read and consolidation priority. SFI 1 holds the main data, SFI 2 and 3
// additional data.
var DefaultLocators = []Locator{
	{SFI: 1, Record: 1}, {SFI: 1, Record: 2}, {SFI: 1, Record: 3},
	{SFI: 2, Record: 1}, {SFI: 2, Record: 2},
	{SFI: 3, Record: 1},
}

// Keys used in Identity.Additional by the proprietary dialect.
const (
	KeyHolderName = "holderName"
	KeyCardID     = "cardId"
	KeyCardType   = "cardType"
)

// Identity is what one record yielded. Every field is optional.
type Identity struct {
	CardID     string
	HolderName string
	Expiry     string // MM/YY
	PAN        string // upper-case hex
	CardType   string
	Additional map[string]string

	// Truncated is set when a declared length ran past the record and the
	// scan stopped early. Fields found before that point are kept.
	Truncated bool
}

// IsEmpty reports whether no field at all was extracted.
func (id Identity) IsEmpty() bool {
	return id.CardID == "" && id.HolderName == "" && id.Expiry == "" &&
		id.PAN == "" && id.CardType == "" && len(id.Additional) == 0
}

// HasKey reports whether the record carries an identifier or a holder name,
// the two fields that make a record worth stopping at.
func (id Identity) HasKey() bool {
	return id.CardID != "" || id.HolderName != ""
}

// Strategy selects the decoding dialect of a record.
type Strategy int

const (
	Standard Strategy = iota
	Proprietary
)

func (s Strategy) String() string {
	switch s {
	case Standard:
		return "standard"
	case Proprietary:
		return "proprietary"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// proprietaryLocator is the only location carrying the DFxx blob.
var proprietaryLocator = Locator{SFI: 1, Record: 1}

// StrategyFor returns the dialect to try first for loc.
func StrategyFor(loc Locator) Strategy {
	if loc == proprietaryLocator {
		return Proprietary
	}
	return Standard
}

// Decode extracts identity fields from the data of the record at loc.
//
// For the proprietary location the DFxx blob is decoded first; if it gives
// an identifier or a holder name the standard scan is skipped. Otherwise
// (and for every other location) the standard scan runs, keeping whatever
// else the proprietary pass found.
//
// Decode is pure and never panics: the same bytes always give the same
// Identity.
func Decode(loc Locator, data []byte) Identity {
	var id Identity

	if StrategyFor(loc) == Proprietary {
		id = decodeProprietary(data)
		if id.HasKey() {
			return id
		}
	}

	std := decodeStandard(data)
	std.CardType = id.CardType
	std.Truncated = std.Truncated || id.Truncated
	if len(id.Additional) > 0 {
		std.Additional = maps.Clone(id.Additional)
	}
	return std
}
