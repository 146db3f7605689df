package gnss

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/driver"
	"positioning-ng/internal/metrics"
	"positioning-ng/internal/nmea"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/store"
)

// ErrStalled is reported when the receiver sends nothing for StallTimeout.
var ErrStalled = errors.New("gnss: receiver stalled")

type NMEAConfig struct {
	// Device may be empty to auto-detect /dev/ttyACM* and /dev/ttyUSB*.
	Device       string
	Baud         int
	StallTimeout time.Duration
	Reopen       driver.ReopenPolicy
}

// maxLine bounds a buffered partial sentence. NMEA sentences are at most
// 82 characters; anything longer is line noise.
const maxLine = 1024

// NMEABackend reads NMEA-0183 from a serial receiver.
type NMEABackend struct {
	cfg     NMEAConfig
	hub     *store.GNSS
	clk     *clock.Source
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	dec     *nmea.Decoder
	acc     Accumulator
	open    openPortFunc

	mu     sync.Mutex
	port   io.ReadWriteCloser
	device string
}

func NewNMEABackend(cfg NMEAConfig, hub *store.GNSS, clk *clock.Source, log *zap.SugaredLogger, m *metrics.Metrics) *NMEABackend {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = 5 * time.Second
	}
	if cfg.Reopen.MaxAttempts == 0 {
		cfg.Reopen = driver.DefaultReopenPolicy()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &NMEABackend{
		cfg:     cfg,
		hub:     hub,
		clk:     clk,
		log:     log,
		metrics: m,
		dec:     nmea.NewDecoder(nmea.WithLogger(log), nmea.WithMetrics(m)),
		open:    openSerial,
	}
}

func (b *NMEABackend) Metadata() reading.GNSSMetadata { return gnssMetadata() }

func (b *NMEABackend) Open() error {
	if err := b.openPort(); err != nil {
		return err
	}
	b.hub.SetStatus(b.clk.NowMs(), reading.StatusInitializing)
	return nil
}

func (b *NMEABackend) openPort() error {
	device := strings.TrimSpace(b.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return fmt.Errorf("gnss: auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	port, err := b.open(device, b.cfg.Baud)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.port = port
	b.device = device
	b.mu.Unlock()
	b.log.Infow("gnss receiver opened", "device", device, "baud", b.cfg.Baud)
	return nil
}

func (b *NMEABackend) currentPort() io.ReadWriteCloser {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port
}

func (b *NMEABackend) Run(ctx context.Context) error {
	for {
		err := b.readLoop(ctx)
		if ctx.Err() != nil {
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
			return nil
		}
		b.log.Warnw("gnss receiver failed, reopening", "device", b.device, "err", err)
		b.hub.SetStatus(b.clk.NowMs(), reading.StatusRestarting)
		_ = b.Close()
		b.acc.Reset()

		rerr := driver.Reopen(ctx, b.clk.Clock(), b.cfg.Reopen, b.openPort, func(attempt int, err error) {
			b.metrics.DriverRestart("gnss.nmea")
			b.log.Warnw("gnss reopen failed", "attempt", attempt, "err", err)
		})
		if ctx.Err() != nil {
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusNotAvailable)
			return nil
		}
		if rerr != nil {
			b.hub.SetStatus(b.clk.NowMs(), reading.StatusFailure)
			return rerr
		}
		b.hub.SetStatus(b.clk.NowMs(), reading.StatusInitializing)
	}
}

// readLoop returns on a read error or a stall.
func (b *NMEABackend) readLoop(ctx context.Context) error {
	port := b.currentPort()
	if port == nil {
		return fmt.Errorf("gnss: port not open")
	}
	c := b.clk.Clock()
	lastData := c.Now()
	available := false
	r := bufio.NewReaderSize(port, 4096)
	var pending string
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A read timeout surfaces as io.EOF; ReadString then returns what
		// arrived so far and the next call resumes reading.
		chunk, err := r.ReadString('\n')
		if chunk != "" {
			lastData = c.Now()
			pending += chunk
		}
		if strings.HasSuffix(pending, "\n") {
			if b.handleLine(pending) && !available {
				available = true
				b.hub.SetStatus(b.clk.NowMs(), reading.StatusAvailable)
			}
			pending = ""
		} else if len(pending) > maxLine {
			pending = ""
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("gnss: read: %w", err)
		}
		if c.Since(lastData) > b.cfg.StallTimeout {
			return ErrStalled
		}
	}
}

// handleLine reports whether the line decoded into a known sentence.
func (b *NMEABackend) handleLine(raw string) bool {
	line := strings.TrimSpace(raw)
	if !strings.HasPrefix(line, "$") {
		return false
	}
	s := b.dec.Decode(line)
	switch s.(type) {
	case nmea.Unknown, nmea.BadChecksum:
		return false
	}
	ep := b.acc.Apply(s, b.clk.NowMs())
	if ep.Time != nil {
		b.hub.Time.Update([]reading.Time{*ep.Time})
	}
	if ep.Position != nil {
		b.hub.Position.Update([]reading.Position{*ep.Position})
	}
	if len(ep.Satellites) > 0 {
		b.hub.Satellites.Update(ep.Satellites)
	}
	return true
}

func (b *NMEABackend) Interrupt() error {
	return b.Close()
}

func (b *NMEABackend) Close() error {
	b.mu.Lock()
	port := b.port
	b.port = nil
	b.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

func gnssMetadata() reading.GNSSMetadata {
	return reading.GNSSMetadata{
		Version:     reading.APIVersion,
		Category:    reading.CategoryPhysical,
		TypeBits:    reading.GNSSTypeGNSS,
		CycleTimeMs: 1000,
		NumChannels: 4,
	}
}
