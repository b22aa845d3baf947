package reader

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gregLibert/kiosk-reader/pkg/iso7816"
	"github.com/gregLibert/kiosk-reader/pkg/metrics"
	"github.com/gregLibert/kiosk-reader/pkg/record"
	"github.com/gregLibert/kiosk-reader/pkg/tlv"
)

// fetch reads every locator with at most permits reads in flight and
// merges the records in locator order, whatever order they complete in.
// It returns as soon as CardID and HolderName are both known; reads still
// outstanding are cancelled and joined before it returns.
func (s *session) fetch(ctx context.Context) {
	locs := s.engine.locators

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(s.engine.permits)

	// One slot and one cancel per locator; a task writes only its own slot.
	slots := make([]chan exchange, len(locs))
	taskCtx := make([]context.Context, len(locs))
	taskCancel := make([]context.CancelFunc, len(locs))
	for i := range locs {
		slots[i] = make(chan exchange, 1)
		taskCtx[i], taskCancel[i] = context.WithCancel(gctx)
	}
	defer func() {
		for _, c := range taskCancel {
			c()
		}
	}()

	// Tasks start in priority order, and task i+1 only starts once task i
	// has handed its first frame to the channel. A half-duplex channel that
	// queues its callers in arrival order then serves locators by priority.
	g.Go(func() error {
		for i, loc := range locs {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}

			dispatched := make(chan struct{})
			var once sync.Once
			mark := func() { once.Do(func() { close(dispatched) }) }

			g.Go(func() error {
				defer sem.Release(1)
				defer mark()
				slots[i] <- s.readRecord(withDispatchHook(taskCtx[i], mark), loc)
				return nil
			})

			select {
			case <-dispatched:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	s.enter(Decoding)

	firstSuccess(ctx, len(locs), s.engine.awaitTimeout,
		func(actx context.Context, i int) exchange {
			select {
			case x := <-slots[i]:
				return x
			case <-actx.Done():
				taskCancel[i]()
				return exchange{desc: locs[i].String(), err: contextError(actx)}
			}
		},
		func(i int, x exchange) bool {
			s.consume(ctx, locs[i], x)
			return s.result.Identified()
		},
	)

	cancel()
	_ = g.Wait()
}

func (s *session) readRecord(ctx context.Context, loc record.Locator) exchange {
	cmd, err := iso7816.ReadRecord(iso7816.InterindustryClass, loc.SFI, loc.Record)
	if err != nil {
		return exchange{desc: loc.String(), err: err}
	}
	return s.send(ctx, metrics.KindRecord, loc.String(), cmd)
}

// consume logs one record result and merges what it decodes to.
func (s *session) consume(ctx context.Context, loc record.Locator, x exchange) {
	s.result.log(x.entry())

	if !x.ok() {
		s.logger.DebugContext(ctx, "record skipped", "record", loc.String(), "error", x.err)
		return
	}

	id := record.Decode(loc, x.data)
	if id.Truncated {
		s.logger.DebugContext(ctx, "record decoded partially",
			"record", loc.String(),
			"error", fmt.Errorf("%w: %s", ErrMalformedRecord, loc),
		)
	}
	if id.IsEmpty() {
		s.logger.DebugContext(ctx, "record decoded",
			"record", loc.String(),
			"ascii", tlv.MakeSafeASCII(x.data),
			"error", fmt.Errorf("%w: %s", ErrNoDataFound, loc),
		)
		return
	}

	s.logger.DebugContext(ctx, "record decoded",
		"record", loc.String(),
		"strategy", record.StrategyFor(loc).String(),
		"card_id", id.CardID != "",
		"holder_name", id.HolderName != "",
	)
	s.result.merge(id)
}
