package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// ReopenPolicy bounds the retries after a device I/O failure.
type ReopenPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultReopenPolicy() ReopenPolicy {
	return ReopenPolicy{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
	}
}

func (p ReopenPolicy) next(d time.Duration) time.Duration {
	m := p.Multiplier
	if m < 1 {
		m = 1
	}
	n := time.Duration(float64(d) * m)
	if p.MaxDelay > 0 && n > p.MaxDelay {
		n = p.MaxDelay
	}
	return n
}

// Reopen calls open until it succeeds, waiting between attempts with
// exponential backoff on clk. onRetry, when set, sees every failed attempt.
// It gives up after MaxAttempts attempts or when ctx is done.
func Reopen(ctx context.Context, clk clock.Clock, p ReopenPolicy, open func() error, onRetry func(attempt int, err error)) error {
	if clk == nil {
		clk = clock.New()
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	wait := p.InitialDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if wait > 0 {
			t := clk.Timer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = open(); err == nil {
			return nil
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		wait = p.next(wait)
	}
	return fmt.Errorf("reopen failed after %d attempts: %w", attempts, err)
}
