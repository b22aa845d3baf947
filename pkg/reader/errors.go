package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
)

var (
	// ErrTransport is a link-level failure reported by the Channel.
	ErrTransport = errors.New("transport error")

	// ErrTimeout means an operation ran past its budget.
	ErrTimeout = errors.New("timeout")

	// ErrStatusRejected means the card answered with a status word other
	// than 9000.
	ErrStatusRejected = errors.New("status rejected")

	// ErrMalformedRecord means a record declared lengths running past its
	// end. Whatever was decoded before that point is still used.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNoApplicationSelected means every candidate AID failed.
	ErrNoApplicationSelected = errors.New("no application selected")

	// ErrNoDataFound means a record was read but gave no identity field.
	ErrNoDataFound = errors.New("no data found")
)

// contextError maps the end of ctx to ErrTimeout for deadlines. Explicit
// cancellation is returned as is: it is not a failure of the card.
func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

// reason is the short failure text written to the diagnostic log.
func reason(err error, sw iso7816.StatusWord) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrStatusRejected):
		return fmt.Sprintf("SW: %04X", uint16(sw))
	case errors.Is(err, iso7816.ErrShortResponse):
		return "Short response"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	default:
		return err.Error()
	}
}
