package sensors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/driver"
	"positioning-ng/internal/i2c"
	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

type IMUConfig struct {
	Bus       string
	BusDriver string
	Chip      string
	Address   uint16

	SampleInterval  time.Duration
	SamplesPerBatch int
	// Average folds each batch into one sample stamped with the last timestamp.
	Average       bool
	MaxReadErrors int
	Reopen        driver.ReopenPolicy
}

type openFunc func() (i2c.Device, chipReader, error)

// IMUBackend polls an I2C IMU on the shared clock and publishes acceleration
// and gyroscope batches.
type IMUBackend struct {
	cfg     IMUConfig
	hub     *store.Sensors
	clk     *clock.Source
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	open    openFunc

	mu   sync.Mutex
	dev  i2c.Device
	read chipReader
}

func NewIMUBackend(cfg IMUConfig, hub *store.Sensors, clk *clock.Source, log *zap.SugaredLogger, m *metrics.Metrics) *IMUBackend {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 10 * time.Millisecond
	}
	if cfg.SamplesPerBatch <= 0 {
		cfg.SamplesPerBatch = 10
	}
	if cfg.MaxReadErrors <= 0 {
		cfg.MaxReadErrors = 50
	}
	if cfg.Reopen.MaxAttempts == 0 {
		cfg.Reopen = driver.DefaultReopenPolicy()
	}
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress(cfg.Chip)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &IMUBackend{cfg: cfg, hub: hub, clk: clk, log: log, metrics: m}
	b.open = b.openDevice
	return b
}

func (b *IMUBackend) openDevice() (i2c.Device, chipReader, error) {
	dev, err := i2c.OpenDevice(b.cfg.BusDriver, b.cfg.Bus, b.cfg.Address)
	if err != nil {
		return nil, nil, err
	}
	rate := int(time.Second / b.cfg.SampleInterval)
	read, err := probeChip(b.cfg.Chip, dev, rate)
	if err != nil {
		_ = dev.Close()
		return nil, nil, err
	}
	return dev, read, nil
}

// Metadata lists the sensor types this backend produces.
func (b *IMUBackend) Metadata() []reading.SensorMetadata {
	cycle := uint32((b.cfg.SampleInterval * time.Duration(b.cfg.SamplesPerBatch)).Milliseconds())
	return []reading.SensorMetadata{
		{Version: reading.APIVersion, Category: reading.CategoryPhysical, Type: reading.SensorAcceleration, CycleTimeMs: cycle},
		{Version: reading.APIVersion, Category: reading.CategoryPhysical, Type: reading.SensorGyroscope, CycleTimeMs: cycle},
	}
}

func (b *IMUBackend) Open() error {
	if err := b.reopen(); err != nil {
		return err
	}
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusInitializing)
	return nil
}

func (b *IMUBackend) reopen() error {
	dev, read, err := b.open()
	if err != nil {
		return fmt.Errorf("sensors: imu open %s: %w", b.cfg.Bus, err)
	}
	b.mu.Lock()
	b.dev, b.read = dev, read
	b.mu.Unlock()
	b.log.Infow("imu opened", "bus", b.cfg.Bus, "chip", b.cfg.Chip, "addr", fmt.Sprintf("0x%02X", b.cfg.Address))
	return nil
}

type imuReading struct {
	ts uint64
	s  imuSample
}

func (b *IMUBackend) Run(ctx context.Context) error {
	ticker := b.clk.Clock().Ticker(b.cfg.SampleInterval)
	defer ticker.Stop()

	window := b.cfg.SampleInterval * time.Duration(b.cfg.SamplesPerBatch)
	batch := make([]imuReading, 0, b.cfg.SamplesPerBatch)
	var batchStart time.Time
	errs := 0
	available := false

	for {
		select {
		case <-ctx.Done():
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
			return nil
		case <-ticker.C:
		}

		b.mu.Lock()
		read := b.read
		b.mu.Unlock()

		s, err := read()
		if err != nil {
			batch = batch[:0]
			errs++
			if errs < b.cfg.MaxReadErrors {
				continue
			}
			b.log.Warnw("imu read failing, reopening", "errors", errs, "err", err)
			if rerr := b.restart(ctx); rerr != nil {
				if ctx.Err() != nil {
					b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
					return nil
				}
				b.hub.SetStatus(b.clk.NowMs(), reading.StatusFailure)
				return rerr
			}
			errs = 0
			available = false
			continue
		}
		errs = 0

		now := b.clk.Clock().Now()
		if len(batch) == 0 {
			batchStart = now
		}
		batch = append(batch, imuReading{ts: b.clk.NowMs(), s: s})
		if len(batch) < b.cfg.SamplesPerBatch && now.Sub(batchStart) < window {
			continue
		}
		b.publish(batch)
		batch = batch[:0]
		if !available {
			available = true
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusAvailable)
		}
	}
}

func (b *IMUBackend) restart(ctx context.Context) error {
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusRestarting)
	_ = b.Close()
	return driver.Reopen(ctx, b.clk.Clock(), b.cfg.Reopen, b.reopen, func(attempt int, err error) {
		b.metrics.DriverRestart("sensors.imu")
		b.log.Warnw("imu reopen failed", "attempt", attempt, "err", err)
	})
}

func (b *IMUBackend) publish(batch []imuReading) {
	if b.cfg.Average && len(batch) > 1 {
		batch = []imuReading{average(batch)}
	}
	acc := make([]reading.Acceleration, len(batch))
	gyro := make([]reading.Gyroscope, len(batch))
	for i, r := range batch {
		acc[i] = reading.Acceleration{
			Timestamp:   r.ts,
			X:           float32(r.s.ax),
			Y:           float32(r.s.ay),
			Z:           float32(r.s.az),
			Temperature: float32(r.s.temp),
			Validity:    reading.AccelX | reading.AccelY | reading.AccelZ | reading.AccelTemp,
		}
		gyro[i] = reading.Gyroscope{
			Timestamp:   r.ts,
			YawRate:     float32(r.s.gz),
			PitchRate:   float32(r.s.gy),
			RollRate:    float32(r.s.gx),
			Temperature: float32(r.s.temp),
			Validity:    reading.GyroYaw | reading.GyroPitch | reading.GyroRoll | reading.GyroTemp,
		}
	}
	b.hub.Acceleration.Update(acc)
	b.hub.Gyroscope.Update(gyro)
}

func average(batch []imuReading) imuReading {
	var sum imuSample
	for _, r := range batch {
		sum.ax += r.s.ax
		sum.ay += r.s.ay
		sum.az += r.s.az
		sum.gx += r.s.gx
		sum.gy += r.s.gy
		sum.gz += r.s.gz
		sum.temp += r.s.temp
	}
	n := float64(len(batch))
	return imuReading{
		ts: batch[len(batch)-1].ts,
		s: imuSample{
			ax: sum.ax / n, ay: sum.ay / n, az: sum.az / n,
			gx: sum.gx / n, gy: sum.gy / n, gz: sum.gz / n,
			temp: sum.temp / n,
		},
	}
}

// Interrupt is a no-op: the poll loop only blocks on the ticker and ctx.
func (b *IMUBackend) Interrupt() error { return nil }

func (b *IMUBackend) Close() error {
	b.mu.Lock()
	dev := b.dev
	b.dev = nil
	b.mu.Unlock()
	if dev == nil {
		return nil
	}
	return dev.Close()
}
