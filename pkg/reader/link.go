package reader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
	"github.com/gregLibert/kiosk-reader/pkg/metrics"
	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// call runs fn and waits for it or for the end of ctx, whichever comes
// first. A transport that ignores ctx keeps running in the background until
// it returns; its late result is dropped.
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrTransport, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{v: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		if o.err == nil {
			return o.v, nil
		}
		if ctx.Err() != nil && (errors.Is(o.err, context.DeadlineExceeded) || errors.Is(o.err, context.Canceled)) {
			return zero, contextError(ctx)
		}
		if errors.Is(o.err, ErrTransport) {
			return zero, o.err
		}
		return zero, fmt.Errorf("%w: %w", ErrTransport, o.err)
	case <-ctx.Done():
		return zero, contextError(ctx)
	}
}

type dispatchKey struct{}

// withDispatchHook returns a ctx under which every frame handed to the
// Channel first calls hook.
func withDispatchHook(ctx context.Context, hook func()) context.Context {
	return context.WithValue(ctx, dispatchKey{}, hook)
}

// link adapts a Channel to the iso7816 client.
type link struct {
	ch Channel
}

func (l link) Transmit(ctx context.Context, cmd []byte) ([]byte, error) {
	hook, _ := ctx.Value(dispatchKey{}).(func())
	return call(ctx, func(ctx context.Context) ([]byte, error) {
		if hook != nil {
			hook()
		}
		return l.ch.Transmit(ctx, cmd)
	})
}

// exchange is the outcome of one logical command.
type exchange struct {
	desc   string // "SELECT <AID>", "GPO", "SFI:1 REC:1"
	status iso7816.StatusWord
	raw    []byte // final response with SW, nil if the card never answered
	data   []byte // response data without SW, only on success
	err    error
}

func (x exchange) ok() bool {
	return x.err == nil
}

// entry renders the exchange for the diagnostic log.
func (x exchange) entry() string {
	if x.err == nil {
		return x.desc + ": " + tlv.UpperHex(x.raw)
	}
	return x.desc + ": " + reason(x.err, x.status)
}

// send runs cmd under the operation timeout. Only a final 9000 is a
// success: warnings and 61XX left unresolved are rejections.
func (s *session) send(ctx context.Context, kind, desc string, cmd *iso7816.CommandAPDU) exchange {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.engine.opTimeout)
	defer cancel()

	trace, err := s.client.Send(ctx, cmd)

	x := exchange{desc: desc, status: trace.Status(), raw: trace.Response()}
	switch {
	case err != nil:
		x.err = err
	case !x.status.IsNormal():
		x.err = fmt.Errorf("%w: %s", ErrStatusRejected, x.status.Verbose())
	default:
		x.data = trace.Last().Response.Data
	}

	s.logger.DebugContext(ctx, "exchange",
		"command", desc,
		"apdu", cmd.String(),
		"status", x.status.String(),
	)
	if len(trace) > 1 {
		s.logger.DebugContext(ctx, "exchange chained", "command", desc, "trace", trace.String())
	}
	s.engine.metrics.ObserveExchange(kind, exchangeOutcome(x.err), start)
	return x
}

func exchangeOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.ExchangeOK
	case errors.Is(err, ErrTimeout):
		return metrics.ExchangeTimeout
	case errors.Is(err, ErrStatusRejected):
		return metrics.ExchangeRejected
	default:
		return metrics.ExchangeError
	}
}
