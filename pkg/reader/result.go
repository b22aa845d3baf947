package reader

import (
	"time"

	"github.com/gregLibert/kiosk-reader/pkg/record"
)

// CardReadResult is everything one tap produced. Fields are empty when the
// card did not provide them; an all-empty result is still a valid result.
type CardReadResult struct {
	SessionID string

	CardID           string
	HolderName       string
	Expiry           string // MM/YY
	ApplicationLabel string
	PAN              string
	Additional       map[string]string

	// RawData lists every exchange attempted, in order, e.g.
	// "SELECT A000000077AB01: 6F..9000" or "SFI:1 REC:2: SW: 6A83".
	RawData []string

	Elapsed time.Duration
}

func newResult(sessionID string) *CardReadResult {
	return &CardReadResult{
		SessionID:  sessionID,
		Additional: map[string]string{},
		RawData:    []string{},
	}
}

// Empty reports whether no identity field was extracted. The application
// label alone does not count.
func (r *CardReadResult) Empty() bool {
	return r.CardID == "" && r.HolderName == "" && r.Expiry == "" &&
		r.PAN == "" && len(r.Additional) == 0
}

// Identified reports whether both key fields are known.
func (r *CardReadResult) Identified() bool {
	return r.CardID != "" && r.HolderName != ""
}

// merge folds one record into the result. Fields already set by a record
// of higher priority are kept; Additional entries are overwritten.
func (r *CardReadResult) merge(id record.Identity) {
	setOnce(&r.CardID, id.CardID)
	setOnce(&r.HolderName, id.HolderName)
	setOnce(&r.Expiry, id.Expiry)
	setOnce(&r.PAN, id.PAN)

	for k, v := range id.Additional {
		r.Additional[k] = v
	}
}

func (r *CardReadResult) log(entry string) {
	r.RawData = append(r.RawData, entry)
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
