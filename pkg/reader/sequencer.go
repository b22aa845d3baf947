package reader

import (
	"context"
	"time"
)

// firstSuccess calls attempt for i = 0..n-1 in order, each call under its
// own timeout, until stop accepts a result. It returns the index of that
// result, or -1 when the list is exhausted or ctx ends.
//
// A failing attempt never aborts the sequence; stop decides what counts.
func firstSuccess[R any](
	ctx context.Context,
	n int,
	timeout time.Duration,
	attempt func(ctx context.Context, i int) R,
	stop func(i int, r R) bool,
) int {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return -1
		}

		actx, cancel := context.WithTimeout(ctx, timeout)
		r := attempt(actx, i)
		cancel()

		if stop(i, r) {
			return i
		}
	}
	return -1
}
