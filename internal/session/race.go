package session

import (
	"context"
	"time"
)

// raceDeadline runs fn against an independent timer and returns whichever
// settles first. The loser is abandoned, not cancelled: fn keeps the caller's
// context, and if the timer wins, fn's eventual result is discarded without
// ever being observed by state.
func raceDeadline[T any](ctx context.Context, d time.Duration, timeoutErr error, fn func(context.Context) (T, error)) (T, error) {
	type settled struct {
		value T
		err   error
	}

	// Buffered so the abandoned goroutine can settle and exit.
	done := make(chan settled, 1)
	go func() {
		value, err := fn(ctx)
		done <- settled{value: value, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case result := <-done:
		return result.value, result.err
	case <-timer.C:
		var zero T
		return zero, timeoutErr
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
