// Package store holds the current reading of every GNSS and sensor channel
// and the single subscriber notified on each update.
//
// Each Channel guards its value with a data mutex and its subscriber with a
// separate callback mutex. The two are never held at the same time, so a
// subscriber may call Get on any channel (including its own) from inside
// its callback.
package store

import (
	"sync"

	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
)

// Token identifies a registration. The zero Token is never issued.
type Token uint64

type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics records delivered readings under the channel's name.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Channel is one shared reading slot plus its subscription.
// The zero value is an uninitialized channel: Get and Update report false.
type Channel[T reading.Stamped] struct {
	name    string
	metrics *metrics.Metrics

	mu          sync.Mutex
	current     T
	initialized bool

	cbMu      sync.Mutex
	cb        func([]T)
	token     Token
	nextToken Token
}

func NewChannel[T reading.Stamped](name string, opts ...Option) *Channel[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Channel[T]{name: name, metrics: o.metrics, initialized: true}
}

func (c *Channel[T]) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Get copies the current reading into out. Before the first update the
// copied reading is the zero value (validity 0).
func (c *Channel[T]) Get(out *T) bool {
	if c == nil || out == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return false
	}
	*out = c.current
	return true
}

// Latest is Get in value form.
func (c *Channel[T]) Latest() (T, bool) {
	var v T
	ok := c.Get(&v)
	return v, ok
}

// Update makes the last element of batch current and then hands the whole
// batch to the subscriber, if any. An empty batch changes nothing.
//
// Concurrent updates on one channel may invoke the subscriber in a
// different order than their stores landed; each backend is the only
// writer of its channels.
func (c *Channel[T]) Update(batch []T) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return false
	}
	if len(batch) == 0 {
		c.mu.Unlock()
		return true
	}
	c.current = batch[len(batch)-1]
	c.mu.Unlock()

	c.metrics.Delivered(c.name, len(batch))

	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.cb != nil {
		c.cb(batch)
	}
	return true
}

// Register installs cb as the only subscriber. It fails when cb is nil or
// another subscriber is registered.
func (c *Channel[T]) Register(cb func(batch []T)) (Token, bool) {
	if c == nil || cb == nil {
		return 0, false
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.cb != nil {
		return 0, false
	}
	c.nextToken++
	c.cb = cb
	c.token = c.nextToken
	return c.token, true
}

// Deregister removes the subscriber registered under tok. Once it returns
// true the callback is neither running nor invoked again.
func (c *Channel[T]) Deregister(tok Token) bool {
	if c == nil || tok == 0 {
		return false
	}
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if c.cb == nil || c.token != tok {
		return false
	}
	c.cb = nil
	c.token = 0
	return true
}
