package pcsc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/kiosk-reader/pkg/reader"
)

var _ reader.Channel = (*Card)(nil)

// fakeHandle echoes frames, records them and reports concurrent use. When
// hold is set, each Transmit waits for a value on it.
type fakeHandle struct {
	hold chan struct{}

	mu            sync.Mutex
	busy          bool
	overlapped    bool
	frames        [][]byte
	disconnectErr error
	disconnected  scard.Disposition
}

func (f *fakeHandle) Transmit(cmd []byte) ([]byte, error) {
	f.mu.Lock()
	if f.busy {
		f.overlapped = true
	}
	f.busy = true
	f.frames = append(f.frames, cmd)
	f.mu.Unlock()

	if f.hold != nil {
		<-f.hold
	} else {
		time.Sleep(time.Millisecond)
	}

	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
	return append(append([]byte{}, cmd...), 0x90, 0x00), nil
}

func (f *fakeHandle) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func (f *fakeHandle) Disconnect(d scard.Disposition) error {
	f.disconnected = d
	return f.disconnectErr
}

func newFakeCard(h *fakeHandle, releaseErr error) (*Card, *int) {
	released := 0
	c := newCard("ACS ACR122U", func(string) (handle, func() error, error) {
		return h, func() error { released++; return releaseErr }, nil
	})
	return c, &released
}

func TestCardLifecycle(t *testing.T) {
	ctx := context.Background()
	h := &fakeHandle{}
	c, released := newFakeCard(h, nil)

	_, err := c.Transmit(ctx, []byte{0x00})
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, c.Connect(ctx))
	resp, err := c.Transmit(ctx, []byte{0x00, 0xA4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xA4, 0x90, 0x00}, resp)

	require.NoError(t, c.Close(ctx))
	assert.Equal(t, scard.LeaveCard, h.disconnected)
	assert.Equal(t, 1, *released)

	// Second Close is a no-op.
	require.NoError(t, c.Close(ctx))
	assert.Equal(t, 1, *released)
}

func TestCardSerializesTransmit(t *testing.T) {
	ctx := context.Background()
	h := &fakeHandle{}
	c, _ := newFakeCard(h, nil)
	require.NoError(t, c.Connect(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Transmit(ctx, []byte{byte(i)})
		}()
	}
	wg.Wait()

	assert.False(t, h.overlapped)
}

func TestCardCloseJoinsErrors(t *testing.T) {
	ctx := context.Background()
	errGone := errors.New("card removed")
	errSvc := errors.New("service stopped")
	c, _ := newFakeCard(&fakeHandle{disconnectErr: errGone}, errSvc)
	require.NoError(t, c.Connect(ctx))

	err := c.Close(ctx)
	assert.ErrorIs(t, err, errGone)
	assert.ErrorIs(t, err, errSvc)
}

func TestCardConnectError(t *testing.T) {
	errNoCard := errors.New("no smart card")
	c := newCard("ACS ACR122U", func(string) (handle, func() error, error) {
		return nil, nil, errNoCard
	})

	assert.ErrorIs(t, c.Connect(context.Background()), errNoCard)
	assert.NoError(t, c.Close(context.Background()))
}

func TestCardTransmitAfterCallerGaveUp(t *testing.T) {
	h := &fakeHandle{}
	c, _ := newFakeCard(h, nil)
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Transmit(ctx, []byte{0x00, 0xB2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.sent())
}

func TestCardQueuedCallerTimesOut(t *testing.T) {
	h := &fakeHandle{hold: make(chan struct{})}
	c, _ := newFakeCard(h, nil)
	require.NoError(t, c.Connect(context.Background()))

	first := make(chan error, 1)
	go func() {
		_, err := c.Transmit(context.Background(), []byte{0x01})
		first <- err
	}()
	require.Eventually(t, func() bool { return len(h.sent()) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Transmit(ctx, []byte{0x02})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.hold <- struct{}{}
	require.NoError(t, <-first)
	assert.Equal(t, [][]byte{{0x01}}, h.sent())
}

func TestCardServesCallersInArrivalOrder(t *testing.T) {
	h := &fakeHandle{hold: make(chan struct{})}
	c, _ := newFakeCard(h, nil)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	var wg sync.WaitGroup
	for i := byte(1); i <= 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Transmit(ctx, []byte{i})
		}()
		// Let caller i queue before caller i+1 arrives.
		time.Sleep(5 * time.Millisecond)
	}

	for i := 0; i < 4; i++ {
		h.hold <- struct{}{}
	}
	wg.Wait()

	assert.Equal(t, [][]byte{{1}, {2}, {3}, {4}}, h.sent())
	assert.False(t, h.overlapped)
}

func TestCardCloseWaitsForTurn(t *testing.T) {
	h := &fakeHandle{hold: make(chan struct{})}
	c, released := newFakeCard(h, nil)
	require.NoError(t, c.Connect(context.Background()))

	go func() { _, _ = c.Transmit(context.Background(), []byte{0x01}) }()
	require.Eventually(t, func() bool { return len(h.sent()) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Close(ctx), context.DeadlineExceeded)
	assert.Zero(t, *released)

	h.hold <- struct{}{}
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, *released)
}
