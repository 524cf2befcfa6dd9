// Package poll implements the bounded fixed-interval polling loop used by
// providers that process jobs asynchronously (submit, then poll a status
// endpoint until the job settles).
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the attempt budget runs out before the job
// reaches a terminal status.
var ErrExhausted = errors.New("poll attempts exhausted")

// Config bounds one polling loop. Attempts times Interval is the worst-case
// wait, which is part of the pipeline's latency contract.
type Config struct {
	Attempts int
	Interval time.Duration
}

// Until waits Interval, then invokes check, up to Attempts times. check
// returns done=true when the job reached a terminal status. Any error from
// check stops the loop immediately: an outright failure is not a "pending"
// status and is never retried.
func Until(ctx context.Context, cfg Config, check func(ctx context.Context) (bool, error)) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("poll cancelled: %w", ctx.Err())
		case <-time.After(cfg.Interval):
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrExhausted, cfg.Attempts)
}
