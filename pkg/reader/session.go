package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
	"github.com/gregLibert/kiosk-reader/pkg/metrics"
)

// session is the state of one ReadIdentity call. It is owned by a single
// goroutine; only record reads run concurrently, and they never touch it
// except through their own result slot.
type session struct {
	engine *Engine
	ch     Channel
	client *iso7816.Client
	logger *slog.Logger
	result *CardReadResult
}

// ReadIdentity runs one full session on ch and always returns a result.
//
// The channel is connected, used and closed here; ch must not be shared
// with another session. The returned result is not modified afterwards.
func (e *Engine) ReadIdentity(ctx context.Context, ch Channel) *CardReadResult {
	id := uuid.NewString()
	s := &session{
		engine: e,
		ch:     ch,
		client: iso7816.NewClient(link{ch: ch}),
		logger: e.logger.With("session_id", id),
		result: newResult(id),
	}

	ctx, span := e.tracer.Start(ctx, "reader.ReadIdentity",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	start := time.Now()
	outcome := s.run(ctx)
	s.close(ctx)
	s.result.Elapsed = time.Since(start)
	s.enter(Done)

	e.metrics.IncrementSession(outcome)
	e.metrics.ObserveSession(s.result.Elapsed)

	span.SetAttributes(
		attribute.String("session.outcome", outcome),
		attribute.Int("session.exchanges", len(s.result.RawData)),
	)

	s.logger.InfoContext(ctx, "card read",
		"outcome", outcome,
		"elapsed", s.result.Elapsed,
		"card_id", s.result.CardID,
		"holder_name", s.result.HolderName,
		"label", s.result.ApplicationLabel,
	)
	return s.result
}

// run goes from Connecting to the end of decoding and returns the session
// outcome. Panics are turned into an outcome so close still runs.
func (s *session) run(ctx context.Context) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "card read aborted", "panic", r)
			trace.SpanFromContext(ctx).SetStatus(codes.Error, fmt.Sprint(r))
			outcome = s.outcome()
		}
	}()

	s.enter(Connecting)
	if err := s.connect(ctx); err != nil {
		s.logger.WarnContext(ctx, "connect failed", "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
		return metrics.OutcomeNoCard
	}

	s.enter(Selecting)
	label, err := s.selectApplication(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "card read stopped", "error", err)
		return metrics.OutcomeNoApp
	}
	s.result.ApplicationLabel = label

	s.enter(Options)
	s.getProcessingOptions(ctx)

	s.enter(Fetching)
	s.fetch(ctx)

	return s.outcome()
}

func (s *session) outcome() string {
	if s.result.Empty() {
		return metrics.OutcomeEmpty
	}
	return metrics.OutcomeIdentified
}

func (s *session) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.engine.connectTimeout)
	defer cancel()

	_, err := call(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.ch.Connect(ctx)
	})
	return err
}

// close releases the channel under its own timeout, even when ctx is
// already done. Errors are logged only.
func (s *session) close(ctx context.Context) {
	s.enter(Closing)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.engine.closeTimeout)
	defer cancel()

	_, err := call(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.ch.Close(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "close failed", "error", err)
	}
}

func (s *session) enter(st State) {
	s.logger.Debug("session state", "state", st.String())
	if s.engine.observe == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state observer panicked", "state", st.String(), "panic", r)
		}
	}()
	s.engine.observe(st)
}
