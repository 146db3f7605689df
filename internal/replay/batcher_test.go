package replay

import (
	"testing"

	"positioning-ng/internal/reading"
)

type batchRecorder struct {
	batches [][]reading.Position
}

func (r *batchRecorder) deliver(b []reading.Position) { r.batches = append(r.batches, b) }

func pos(ts uint64) reading.Position {
	return reading.Position{Timestamp: ts, Latitude: float64(ts), Validity: reading.PosLatitude}
}

func feed(b *Batcher[reading.Position], countdowns []int, stamps []uint64) []AddResult {
	out := make([]AddResult, len(countdowns))
	for i, cd := range countdowns {
		out[i] = b.Add(cd, pos(stamps[i]))
	}
	return out
}

func TestBatcher_CompleteBurst(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	res := feed(b, []int{2, 1, 0}, []uint64{10, 20, 30})
	if res[0] != Buffered || res[1] != Buffered || res[2] != Delivered {
		t.Fatalf("unexpected results %v", res)
	}
	if len(rec.batches) != 1 || len(rec.batches[0]) != 3 {
		t.Fatalf("unexpected batches %v", rec.batches)
	}
	for i, want := range []uint64{10, 20, 30} {
		if rec.batches[0][i].Timestamp != want {
			t.Fatalf("batch[%d]=%d want %d", i, rec.batches[0][i].Timestamp, want)
		}
	}
	if b.Pending() != 0 {
		t.Fatalf("Pending=%d after delivery", b.Pending())
	}
}

func TestBatcher_SortsByTimestamp(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	feed(b, []int{2, 1, 0}, []uint64{30, 10, 20})
	got := rec.batches[0]
	if got[0].Timestamp != 10 || got[1].Timestamp != 20 || got[2].Timestamp != 30 {
		t.Fatalf("batch not sorted: %v", got)
	}
}

func TestBatcher_GapDiscards(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	res := feed(b, []int{2, 0}, []uint64{10, 30})
	if res[1] != Discarded {
		t.Fatalf("expected discard, got %v", res)
	}
	if len(rec.batches) != 0 {
		t.Fatalf("gap must not deliver: %v", rec.batches)
	}
	if b.Pending() != 0 {
		t.Fatalf("state not reset")
	}
}

func TestBatcher_DuplicateResets(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	res := feed(b, []int{2, 1, 1, 0}, []uint64{10, 20, 21, 30})
	if res[2] != Discarded {
		t.Fatalf("repeated countdown should discard, got %v", res)
	}
	// The trailing countdown 0 is a complete burst of one on its own.
	if res[3] != Delivered || len(rec.batches) != 1 || len(rec.batches[0]) != 1 || rec.batches[0][0].Timestamp != 30 {
		t.Fatalf("unexpected batches %v (results %v)", rec.batches, res)
	}
}

func TestBatcher_SingleMessageDeliversImmediately(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	if r := b.Add(0, pos(5)); r != Delivered {
		t.Fatalf("result=%v", r)
	}
	if len(rec.batches) != 1 || len(rec.batches[0]) != 1 {
		t.Fatalf("unexpected batches %v", rec.batches)
	}
}

func TestBatcher_CountdownBeyondCapacity(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(4, rec.deliver)
	b.Add(2, pos(1))
	if r := b.Add(4, pos(2)); r != Discarded {
		t.Fatalf("result=%v", r)
	}
	if b.Pending() != 0 {
		t.Fatalf("burst in progress must be dropped")
	}
	if r := b.Add(65535, pos(3)); r != Discarded {
		t.Fatalf("result=%v", r)
	}
	res := feed(b, []int{3, 2, 1, 0}, []uint64{1, 2, 3, 4})
	if res[3] != Delivered || len(rec.batches[0]) != 4 {
		t.Fatalf("full-capacity burst should deliver: %v", res)
	}
}

func TestBatcher_DeliveredSliceIsStable(t *testing.T) {
	rec := &batchRecorder{}
	b := NewBatcher(MaxBufferedMessages, rec.deliver)
	feed(b, []int{1, 0}, []uint64{1, 2})
	feed(b, []int{1, 0}, []uint64{7, 8})
	if rec.batches[0][0].Timestamp != 1 || rec.batches[1][0].Timestamp != 7 {
		t.Fatalf("earlier batch was overwritten: %v", rec.batches)
	}
}
