package deadline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimeout is returned by RunBounded when the deadline passes before the work completes.
var ErrTimeout = eris.New("deadline elapsed before work completed")

type result[T any] struct {
	value T
	err   error
}

// RunBounded runs work in its own goroutine and waits for it until deadline.
//
// If work finishes first its value and error are returned. If the deadline passes first,
// ErrTimeout is returned and whatever work produces later is dropped. The context handed to work
// is cancelled at the deadline, but work is never forcibly interrupted. A deadline that has
// already passed returns ErrTimeout without starting work. Cancelling ctx returns ctx.Err().
func RunBounded[T any](ctx context.Context, deadline time.Time, work func(context.Context) (T, error)) (T, error) {
	var zero T
	if !time.Now().Before(deadline) {
		return zero, ErrTimeout
	}

	workCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// Buffered so an abandoned goroutine can always deliver and exit.
	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: eris.Errorf("panic in bounded work: %v", r)}
			}
		}()
		v, err := work(workCtx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-workCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, eris.Wrap(err, "bounded work cancelled")
		}
		return zero, ErrTimeout
	}
}
