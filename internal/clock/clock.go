// Package clock provides the monotonic millisecond time base shared by all
// backends. Timestamps are milliseconds since the Source was created.
package clock

import (
	"time"

	"github.com/benbjohnson/clock"
)

type Source struct {
	c      clock.Clock
	origin time.Time
}

// New returns a Source on the wall clock. A nil c selects the real clock.
func New(c clock.Clock) *Source {
	if c == nil {
		c = clock.New()
	}
	return &Source{c: c, origin: c.Now()}
}

// NowMs returns milliseconds elapsed since the Source was created.
// It never goes backwards for the real clock since time.Time carries a
// monotonic reading.
func (s *Source) NowMs() uint64 {
	d := s.c.Since(s.origin)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}

// Clock exposes the underlying clock for sleeps and tickers.
func (s *Source) Clock() clock.Clock { return s.c }

// Sleep waits for d or until done is closed. It reports false when done fired first.
func (s *Source) Sleep(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := s.c.Timer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}
