package sensors

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

// ReplayBackend receives replayed sensor messages over UDP.
type ReplayBackend struct {
	addr string
	hub  *store.Sensors
	clk  *clock.Source
	log  *zap.SugaredLogger
	disp *replay.SensorsDispatcher

	mu sync.Mutex
	l  *udp.Listener
}

func NewReplayBackend(addr string, hub *store.Sensors, clk *clock.Source, log *zap.SugaredLogger, m *metrics.Metrics) *ReplayBackend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReplayBackend{
		addr: addr,
		hub:  hub,
		clk:  clk,
		log:  log,
		disp: replay.NewSensorsDispatcher(hub, replay.WithLogger(log), replay.WithMetrics(m)),
	}
}

// Metadata lists the sensor types the replay protocol carries.
func (b *ReplayBackend) Metadata() []reading.SensorMetadata {
	var out []reading.SensorMetadata
	for _, t := range []reading.SensorType{reading.SensorWheelTick, reading.SensorGyroscope, reading.SensorVehicleSpeed, reading.SensorAcceleration} {
		out = append(out, reading.SensorMetadata{
			Version:     reading.APIVersion,
			Category:    reading.CategoryPhysical,
			Type:        t,
			CycleTimeMs: 100,
		})
	}
	return out
}

func (b *ReplayBackend) Open() error {
	l, err := udp.Listen(b.addr, replay.BufferLen)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.l = l
	b.mu.Unlock()
	b.log.Infow("sensors replay listening", "addr", l.Addr().String())
	return nil
}

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
	if err := l.Serve(ctx, b.disp.Feed); err != nil {
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
