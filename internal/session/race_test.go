package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaceDeadline(t *testing.T) {
	errTimeout := errors.New("deadline lost")

	t.Run("fast call wins and returns its result", func(t *testing.T) {
		value, err := raceDeadline(context.Background(), 100*time.Millisecond, errTimeout, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})

	t.Run("call error propagates when it beats the timer", func(t *testing.T) {
		callErr := errors.New("boom")
		_, err := raceDeadline(context.Background(), 100*time.Millisecond, errTimeout, func(context.Context) (int, error) {
			return 0, callErr
		})
		assert.ErrorIs(t, err, callErr)
	})

	t.Run("timer wins and the slow call is abandoned", func(t *testing.T) {
		settled := make(chan struct{})
		started := time.Now()

		value, err := raceDeadline(context.Background(), 30*time.Millisecond, errTimeout, func(context.Context) (string, error) {
			defer close(settled)
			time.Sleep(150 * time.Millisecond)
			return "late", nil
		})
		require.ErrorIs(t, err, errTimeout)
		assert.Empty(t, value)
		assert.Less(t, time.Since(started), 120*time.Millisecond)

		// The loser still runs to completion; its result just goes nowhere.
		select {
		case <-settled:
			t.Fatal("slow call should still be running when the race returns")
		default:
		}
		<-settled
	})

	t.Run("context cancellation settles the race", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := raceDeadline(ctx, time.Second, errTimeout, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
