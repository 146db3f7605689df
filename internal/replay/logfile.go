package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Log format: line-oriented text, one datagram per line.
//
// - Lines containing '#' are comments.
// - Lines not starting with a decimal timestamp are ignored.
// - Data lines are sent as they are: <ms>,<countdown>$<MSGID>,...
//   The leading timestamp (milliseconds) drives the replay timing.

// MaxDelay caps the wait between two log lines.
const MaxDelay = 1000 * time.Millisecond

type Record struct {
	Timestamp uint64
	Line      string
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, BufferLen), 64*1024)

	recs := make([]Record, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) < 3 || strings.Contains(line, "#") {
			continue
		}
		ts, ok := leadingTimestamp(line)
		if !ok {
			continue
		}
		recs = append(recs, Record{Timestamp: ts, Line: line})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func leadingTimestamp(line string) (uint64, bool) {
	end := 0
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	ts, err := strconv.ParseUint(line[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Player replays records with their relative timing.
//
// The wait before a record is the timestamp difference to the previous one,
// capped at MaxDelay and divided by Speed. A record whose timestamp steps
// backwards is skipped.
type Player struct {
	Speed   float64 // 1.0 = real time
	Loop    bool
	Sleeper Sleeper
	Log     *zap.SugaredLogger
}

func (p *Player) Play(ctx context.Context, records []Record, cb func(Record) error) error {
	speed := p.Speed
	if speed == 0 {
		speed = 1
	}
	if speed < 0 {
		return fmt.Errorf("replay: speed must be > 0")
	}
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cb == nil {
		return errors.New("replay: callback is nil")
	}
	if len(records) == 0 {
		return errors.New("replay: no records")
	}

	for {
		var last uint64
		haveLast := false
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			var wait time.Duration
			if haveLast {
				if r.Timestamp < last {
					log.Warnw("timestamp steps backward, skipping line", "timestamp", r.Timestamp, "previous", last)
					last = r.Timestamp
					continue
				}
				wait = time.Duration(r.Timestamp-last) * time.Millisecond
				if wait > MaxDelay {
					log.Warnw("delay capped", "timestamp", r.Timestamp, "delay", wait, "max", MaxDelay)
					wait = MaxDelay
				}
			}
			last = r.Timestamp
			haveLast = true

			wait = time.Duration(float64(wait) / speed)
			if wait > 0 {
				sleeper.Sleep(wait)
			}
			if err := cb(r); err != nil {
				return err
			}
		}
		if !p.Loop {
			return nil
		}
	}
}
