// Package retry re-runs a failing read with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

var retryLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	retryLogger = l
}

// Policy controls Do. The wait before attempt n+1 is Base << (n-1).
type Policy struct {
	Attempts int
	Base     time.Duration

	// Retryable reports whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(error) bool
}

var DefaultPolicy = Policy{Attempts: 3, Base: time.Second}

// Do calls fn until it succeeds, the attempts run out, the error is not
// retryable, or ctx is done. It returns the last error from fn, or the
// context's error if ctx ended a wait.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		wait := p.Base << i
		retryLogger.Debug().Err(err).Int("attempt", i+1).Dur("wait", wait).Msg("Retrying")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	retryLogger.Warn().Err(err).Int("attempts", attempts).Msg("Giving up")
	return err
}

// Value is Do for functions that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
