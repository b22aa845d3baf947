// Package pcsc connects the reader engine to a PC/SC card reader.
//
// The contactless link handles one APDU at a time, so Card serializes
// Transmit calls: the engine may pipeline several record reads, but they
// reach the reader one after the other, in the order they arrived. A caller
// whose ctx ends while it waits for its turn is dropped without anything
// being sent to the card.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebfe/scard"
	"golang.org/x/sync/semaphore"
)

// ErrNotConnected is returned by Transmit before Connect or after Close.
var ErrNotConnected = errors.New("pcsc: card not connected")

// ErrNoReader means the PC/SC service lists no reader.
var ErrNoReader = errors.New("pcsc: no smart card reader found")

// pollInterval bounds each GetStatusChange wait so ctx is checked
// regularly.
const pollInterval = 250 * time.Millisecond

// handle is the part of *scard.Card used here.
type handle interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

type opener func(reader string) (h handle, release func() error, err error)

// Card is one session on a named reader. Connect, use and Close it once
// per tap.
type Card struct {
	reader string
	open   opener

	// turn admits one caller at a time, first come first served, and
	// guards h and release.
	turn    *semaphore.Weighted
	h       handle
	release func() error
}

// NewCard returns a Card for reader. Nothing is opened until Connect.
func NewCard(reader string) *Card {
	return newCard(reader, openScard)
}

func newCard(reader string, open opener) *Card {
	return &Card{reader: reader, open: open, turn: semaphore.NewWeighted(1)}
}

func openScard(reader string) (handle, func() error, error) {
	sc, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("pcsc: establish context: %w", err)
	}

	// T=0 or T=1 explicitly: some drivers reject the default with
	// "Parameter Incorrect".
	card, err := sc.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		_ = sc.Release()
		return nil, nil, fmt.Errorf("pcsc: connect %q: %w", reader, err)
	}
	return card, sc.Release, nil
}

// Reader returns the reader name.
func (c *Card) Reader() string {
	return c.reader
}

// wait blocks until it is the caller's turn. It fails, holding nothing,
// once ctx is done.
func (c *Card) wait(ctx context.Context) error {
	if err := c.turn.Acquire(ctx, 1); err != nil {
		return err
	}
	// Acquire may succeed on a ctx that is already done.
	if err := ctx.Err(); err != nil {
		c.turn.Release(1)
		return err
	}
	return nil
}

func (c *Card) done() {
	c.turn.Release(1)
}

func (c *Card) Connect(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	defer c.done()

	if c.h != nil {
		return nil
	}

	h, release, err := c.open(c.reader)
	if err != nil {
		return err
	}
	c.h, c.release = h, release
	return nil
}

// Transmit sends frame once every earlier caller is done. The exchange
// itself cannot be interrupted.
func (c *Card) Transmit(ctx context.Context, frame []byte) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	defer c.done()

	if c.h == nil {
		return nil, ErrNotConnected
	}
	return c.h.Transmit(frame)
}

// Close disconnects, leaving the card powered, and releases the PC/SC
// context, after any exchange already on the air. It is a no-op on a Card
// that is not connected.
func (c *Card) Close(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("pcsc: close: %w", err)
	}
	defer c.done()

	if c.h == nil {
		return nil
	}

	var errs []error
	if err := c.h.Disconnect(scard.LeaveCard); err != nil {
		errs = append(errs, fmt.Errorf("pcsc: disconnect: %w", err))
	}
	if c.release != nil {
		if err := c.release(); err != nil {
			errs = append(errs, fmt.Errorf("pcsc: release context: %w", err))
		}
	}
	c.h, c.release = nil, nil
	return errors.Join(errs...)
}

// Readers lists the readers known to the PC/SC service.
func Readers() ([]string, error) {
	sc, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("pcsc: establish context: %w", err)
	}
	defer sc.Release()

	readers, err := sc.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("pcsc: list readers: %w", err)
	}
	if len(readers) == 0 {
		return nil, ErrNoReader
	}
	return readers, nil
}

// WaitForCard blocks until a card is present on reader or ctx ends.
func WaitForCard(ctx context.Context, reader string) error {
	return waitFor(ctx, reader, scard.StatePresent)
}

// WaitForRemoval blocks until reader is empty or ctx ends.
func WaitForRemoval(ctx context.Context, reader string) error {
	return waitFor(ctx, reader, scard.StateEmpty)
}

func waitFor(ctx context.Context, reader string, want scard.StateFlag) error {
	sc, err := scard.EstablishContext()
	if err != nil {
		return fmt.Errorf("pcsc: establish context: %w", err)
	}
	defer sc.Release()

	states := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := sc.GetStatusChange(states, pollInterval)
		if err != nil && !errors.Is(err, scard.ErrTimeout) {
			return fmt.Errorf("pcsc: status change on %q: %w", reader, err)
		}

		if states[0].EventState&want != 0 {
			return nil
		}
		states[0].CurrentState = states[0].EventState
	}
}
