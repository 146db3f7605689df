package gnss

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/driver"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

// fakePort hands out queued chunks and then blocks until closed.
type fakePort struct {
	chunks chan []byte
	closed chan struct{}
	once   sync.Once
	// idle makes Read behave like a serial timeout instead of blocking.
	idle bool
}

func newFakePort(lines ...string) *fakePort {
	p := &fakePort{chunks: make(chan []byte, len(lines)), closed: make(chan struct{})}
	for _, l := range lines {
		p.chunks <- []byte(l + "\r\n")
	}
	return p
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case c := <-p.chunks:
		return copy(b, c), nil
	default:
	}
	if p.idle {
		select {
		case <-p.closed:
			return 0, os.ErrClosed
		case <-time.After(time.Millisecond):
			return 0, io.EOF
		}
	}
	select {
	case c := <-p.chunks:
		return copy(b, c), nil
	case <-p.closed:
		return 0, os.ErrClosed
	}
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestNMEABackend_PublishesEpoch(t *testing.T) {
	hub := store.NewGNSS()
	port := newFakePort(
		nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W"),
	)
	b := NewNMEABackend(NMEAConfig{Device: "/dev/fake"}, hub, clock.New(nil), nil, nil)
	b.open = func(device string, baud int) (io.ReadWriteCloser, error) {
		require.Equal(t, "/dev/fake", device)
		require.Equal(t, 9600, baud)
		return port, nil
	}

	r := driver.New("gnss", b)
	require.NoError(t, r.Init())
	require.NoError(t, r.Start(context.Background()))

	waitFor(t, func() bool {
		var p reading.Position
		return hub.Position.Get(&p) && p.Has(reading.PosAltitudeMSL)
	})
	var tm reading.Time
	require.True(t, hub.Time.Get(&tm))
	require.Equal(t, uint16(2024), tm.Year)

	st, ok := hub.Status.Latest()
	require.True(t, ok)
	require.Equal(t, reading.StatusAvailable, st.Status)

	require.NoError(t, r.Stop())
	st, _ = hub.Status.Latest()
	require.Equal(t, reading.StatusNotAvailable, st.Status)
}

func TestNMEABackend_SentenceSplitAcrossReadTimeouts(t *testing.T) {
	hub := store.NewGNSS()
	port := &fakePort{chunks: make(chan []byte, 4), closed: make(chan struct{}), idle: true}
	b := NewNMEABackend(NMEAConfig{Device: "/dev/fake"}, hub, clock.New(nil), nil, nil)
	b.open = func(string, int) (io.ReadWriteCloser, error) { return port, nil }

	r := driver.New("gnss", b)
	require.NoError(t, r.Init())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	gga := nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,") + "\r\n"
	port.chunks <- []byte(gga[:20])
	time.Sleep(20 * time.Millisecond)
	port.chunks <- []byte(gga[20:])
	port.chunks <- []byte(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W") + "\r\n")

	waitFor(t, func() bool {
		var p reading.Position
		return hub.Position.Get(&p) && p.Has(reading.PosAltitudeMSL)
	})
	p, _ := hub.Position.Latest()
	require.InDelta(t, 545.4, float64(p.AltitudeMSL), 1e-4)
	require.Equal(t, uint64(0), b.dec.Stats().Unknown)
}

func TestNMEABackend_StallExhaustsReopen(t *testing.T) {
	hub := store.NewGNSS()
	var seen []reading.Status
	var mu sync.Mutex
	hub.Status.Register(func(batch []reading.GNSSStatus) {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range batch {
			seen = append(seen, s.Status)
		}
	})

	b := NewNMEABackend(NMEAConfig{
		Device:       "/dev/fake",
		StallTimeout: 20 * time.Millisecond,
		Reopen:       driver.ReopenPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, hub, clock.New(nil), nil, nil)
	opens := 0
	b.open = func(string, int) (io.ReadWriteCloser, error) {
		opens++
		if opens > 1 {
			return nil, errors.New("unplugged")
		}
		p := newFakePort()
		p.idle = true
		return p, nil
	}

	r := driver.New("gnss", b)
	require.NoError(t, r.Init())
	require.NoError(t, r.Start(context.Background()))
	select {
	case <-r.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("backend did not give up")
	}
	require.Error(t, r.Err())
	require.Equal(t, driver.Stopped, r.State())
	require.Equal(t, 3, opens)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []reading.Status{reading.StatusInitializing, reading.StatusRestarting, reading.StatusFailure}, seen)
}

func TestAutoDetectDevice(t *testing.T) {
	old := statDevice
	defer func() { statDevice = old }()
	statDevice = func(name string) (os.FileInfo, error) {
		if name == "/dev/ttyUSB3" {
			return nil, nil
		}
		return nil, os.ErrNotExist
	}
	require.Equal(t, "/dev/ttyUSB3", autoDetectDevice())
}
