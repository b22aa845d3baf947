package emv

// Data object tags, as upper-case hex strings for bertlv lookups.
const (
	TagFCITemplate      = "6F"
	TagFCIProprietary   = "A5"
	TagApplicationLabel = "50"
	TagPreferredName    = "9F12"
)

// Tags read from records, as raw bytes for tolerant scans.
var (
	// TagPAN is the Application Primary Account Number.
	TagPAN = []byte{0x5A}
	// TagCardholderName is the name as embossed, ans 2-26.
	TagCardholderName = []byte{0x5F, 0x20}
	// TagExpirationDate is YYMMDD, n6 (BCD).
	TagExpirationDate = []byte{0x5F, 0x24}
	// TagIssuerApplicationData is proprietary issuer data, used as an
	// identifier of last resort.
	TagIssuerApplicationData = []byte{0x9F, 0x10}
)
