package gnss

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/replay"
	"positioning-ng/internal/store"
	"positioning-ng/internal/udp"
)

// ReplayBackend receives replayed GNSS messages over UDP.
type ReplayBackend struct {
	addr string
	hub  *store.GNSS
	clk  *clock.Source
	log  *zap.SugaredLogger
	disp *replay.GNSSDispatcher

	mu sync.Mutex
	l  *udp.Listener
}

func NewReplayBackend(addr string, hub *store.GNSS, clk *clock.Source, log *zap.SugaredLogger, m *metrics.Metrics) *ReplayBackend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReplayBackend{
		addr: addr,
		hub:  hub,
		clk:  clk,
		log:  log,
		disp: replay.NewGNSSDispatcher(hub, replay.WithLogger(log), replay.WithMetrics(m)),
	}
}

func (b *ReplayBackend) Metadata() reading.GNSSMetadata { return gnssMetadata() }

func (b *ReplayBackend) Open() error {
	l, err := udp.Listen(b.addr, replay.BufferLen)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.l = l
	b.mu.Unlock()
	b.log.Infow("gnss replay listening", "addr", l.Addr().String())
	return nil
}

// Addr is the bound address, or "" before Open.
func (b *ReplayBackend) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.l == nil {
		return ""
	}
	return b.l.Addr().String()
}

func (b *ReplayBackend) Run(ctx context.Context) error {
	b.mu.Lock()
	l := b.l
	b.mu.Unlock()
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusAvailable)
	err := l.Serve(ctx, b.disp.Feed)
	if err != nil {
		b.hub.SetStatus(b.clk.NowMs(), reading.StatusFailure)
		return err
	}
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
	return nil
}

func (b *ReplayBackend) Interrupt() error { return b.Close() }

func (b *ReplayBackend) Close() error {
	b.mu.Lock()
	l := b.l
	b.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Close()
}
