package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const connectBackoff = time.Second

// withRetry calls dial until it succeeds, attempts run out or ctx ends.
// The wait doubles after every failure.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, log zerolog.Logger, what string, dial func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	wait := backoff
	for i := 1; i <= attempts; i++ {
		if err = dial(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).
			Str("target", what).
			Int("attempt", i).
			Dur("wait", wait).
			Msg("Connection failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
