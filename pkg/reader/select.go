package reader

import (
	"context"
	"fmt"

	"github.com/gregLibert/kiosk-reader/pkg/emv"
	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
	"github.com/gregLibert/kiosk-reader/pkg/metrics"
	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// selectApplication tries each candidate AID until one answers 9000, and
// returns the application label found in its FCI.
func (s *session) selectApplication(ctx context.Context) (string, error) {
	candidates := s.engine.candidates

	var label string
	idx := firstSuccess(ctx, len(candidates), s.engine.opTimeout,
		func(ctx context.Context, i int) exchange {
			aid := candidates[i]
			cmd := iso7816.SelectByAID(iso7816.InterindustryClass, aid)
			return s.send(ctx, metrics.KindSelect, "SELECT "+tlv.UpperHex(aid), cmd)
		},
		func(i int, x exchange) bool {
			s.result.log(x.entry())
			if !x.ok() {
				s.logger.WarnContext(ctx, "application not selected",
					"aid", tlv.UpperHex(candidates[i]),
					"error", x.err,
				)
				return false
			}
			label = emv.ApplicationLabel(x.data)
			return true
		},
	)

	if idx < 0 {
		return "", fmt.Errorf("%w: %d candidates tried", ErrNoApplicationSelected, len(candidates))
	}

	s.logger.DebugContext(ctx, "application selected",
		"aid", tlv.UpperHex(candidates[idx]),
		"label", label,
	)
	return label, nil
}

// getProcessingOptions is best effort: the answer is only logged.
func (s *session) getProcessingOptions(ctx context.Context) {
	x := s.send(ctx, metrics.KindGPO, "GPO", emv.GetProcessingOptions())
	if x.raw != nil {
		s.result.log(x.entry())
	}
	if !x.ok() {
		s.logger.WarnContext(ctx, "GPO skipped", "error", x.err)
	}
}
