package replay

import (
	"sort"

	"positioning-ng/internal/reading"
)

// MaxBufferedMessages is the default number of datagrams one burst may hold.
const MaxBufferedMessages = 16

type AddResult int

const (
	// Buffered means the datagram was kept and the burst is incomplete.
	Buffered AddResult = iota
	// Delivered means the datagram completed a burst.
	Delivered
	// Discarded means the burst in progress and this datagram were dropped.
	Discarded
)

// Batcher reassembles the bursts of one message type. A burst of N
// datagrams carries countdowns N-1 ... 0 in order; anything else discards
// what was collected so far. Only complete bursts are delivered.
type Batcher[T reading.Stamped] struct {
	buf     []T
	size    int
	last    int
	deliver func([]T)
}

// NewBatcher returns a Batcher holding at most capacity datagrams per burst.
// deliver receives a fresh slice sorted by timestamp.
func NewBatcher[T reading.Stamped](capacity int, deliver func([]T)) *Batcher[T] {
	if capacity <= 0 {
		capacity = MaxBufferedMessages
	}
	return &Batcher[T]{buf: make([]T, capacity), deliver: deliver}
}

func (b *Batcher[T]) Add(countdown int, v T) AddResult {
	if countdown < 0 || countdown >= len(b.buf) {
		b.reset()
		return Discarded
	}
	switch {
	case b.size == 0:
		b.size = countdown + 1
		b.last = countdown
		b.buf[0] = v
	case b.last-countdown == 1:
		b.last = countdown
		b.buf[b.size-countdown-1] = v
	default:
		b.reset()
		return Discarded
	}
	if countdown > 0 {
		return Buffered
	}

	batch := make([]T, b.size)
	copy(batch, b.buf[:b.size])
	b.reset()
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Stamp() < batch[j].Stamp()
	})
	if b.deliver != nil {
		b.deliver(batch)
	}
	return Delivered
}

// Pending is the number of datagrams held for the burst in progress.
func (b *Batcher[T]) Pending() int {
	if b.size == 0 {
		return 0
	}
	return b.size - b.last
}

func (b *Batcher[T]) reset() {
	var zero T
	for i := 0; i < b.size && i < len(b.buf); i++ {
		b.buf[i] = zero
	}
	b.size = 0
	b.last = 0
}
