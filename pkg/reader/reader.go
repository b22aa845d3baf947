// Package reader extracts a minimal identity from a contactless card.
//
// An Engine drives one session per tap over a Channel:
//
//	connect -> select application -> GET PROCESSING OPTIONS (best effort)
//	        -> read records concurrently -> decode and merge -> close
//
// ReadIdentity never fails: every error is absorbed where it happens (one
// candidate AID, one record, one tag) and the caller gets whatever was
// merged so far, plus a diagnostic log of every exchange.
package reader

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gregLibert/kiosk-reader/pkg/metrics"
	"github.com/gregLibert/kiosk-reader/pkg/record"
	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// Channel is an open byte-exchange link to one tapped card.
//
// Implementations should honour ctx, but the Engine does not rely on it:
// every call is raced against its deadline.
type Channel interface {
	Connect(ctx context.Context) error
	Transmit(ctx context.Context, frame []byte) ([]byte, error)
	Close(ctx context.Context) error
}

// Default session parameters.
const (
	DefaultOperationTimeout = 200 * time.Millisecond
	DefaultConnectTimeout   = 1000 * time.Millisecond
	DefaultCloseTimeout     = 100 * time.Millisecond
	DefaultPermits          = 3
)

// DefaultCandidates are the AIDs tried in order: the kiosk's own health
// card application, then the payment system environment (1PAY.SYS.DDF01).
var DefaultCandidates = [][]byte{
	tlv.Hex("A000000077AB01"),
	tlv.Hex("315041592E5359532E4444463031"),
}

const tracerName = "github.com/gregLibert/kiosk-reader/pkg/reader"

// Engine reads identities. It holds no per-session state and may serve
// several channels concurrently.
type Engine struct {
	candidates [][]byte
	locators   []record.Locator
	permits    int64

	opTimeout      time.Duration
	awaitTimeout   time.Duration
	connectTimeout time.Duration
	closeTimeout   time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	observe func(State)
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithCandidates replaces the AIDs tried during selection, most specific
// first.
func WithCandidates(aids ...[]byte) Option {
	return func(e *Engine) {
		e.candidates = aids
	}
}

// WithLocators replaces the records read, in priority order.
func WithLocators(locs ...record.Locator) Option {
	return func(e *Engine) {
		e.locators = locs
	}
}

// WithPermits bounds the number of record reads in flight.
func WithPermits(n int) Option {
	return func(e *Engine) {
		e.permits = int64(n)
	}
}

// WithOperationTimeout bounds each SELECT, GPO and READ RECORD.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.opTimeout = d
	}
}

// WithAwaitTimeout bounds the wait for one record result. It defaults to
// twice the operation timeout.
func WithAwaitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.awaitTimeout = d
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.connectTimeout = d
	}
}

func WithCloseTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.closeTimeout = d
	}
}

// WithStateObserver registers fn to be called on every session state
// change. fn runs on the session goroutine and must not block.
func WithStateObserver(fn func(State)) Option {
	return func(e *Engine) {
		e.observe = fn
	}
}

// New builds an Engine. Zero or negative values left by options fall back
// to the defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		candidates:     DefaultCandidates,
		locators:       record.DefaultLocators,
		permits:        DefaultPermits,
		opTimeout:      DefaultOperationTimeout,
		connectTimeout: DefaultConnectTimeout,
		closeTimeout:   DefaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.permits <= 0 {
		e.permits = DefaultPermits
	}
	if e.opTimeout <= 0 {
		e.opTimeout = DefaultOperationTimeout
	}
	if e.awaitTimeout <= 0 {
		e.awaitTimeout = 2 * e.opTimeout
	}
	if e.connectTimeout <= 0 {
		e.connectTimeout = DefaultConnectTimeout
	}
	if e.closeTimeout <= 0 {
		e.closeTimeout = DefaultCloseTimeout
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}
