package main

import (
	"fmt"

	"go.uber.org/zap"

	"positioning-ng/internal/clock"
	"positioning-ng/internal/config"
	"positioning-ng/internal/driver"
	"positioning-ng/internal/gnss"
	"positioning-ng/internal/metrics"
	"positioning-ng/internal/reading"
	"positioning-ng/internal/sensors"
	"positioning-ng/internal/store"
)

type deps struct {
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	clk     *clock.Source
	gnss    *store.GNSS
	sensors *store.Sensors
}

func reopenPolicy(c config.ReopenConfig) driver.ReopenPolicy {
	return driver.ReopenPolicy{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		MaxDelay:     c.MaxDelay,
		Multiplier:   2,
	}
}

// buildDrivers returns one runner per configured source, GNSS first.
func buildDrivers(cfg config.Config, d deps) ([]*driver.Runner, error) {
	var out []*driver.Runner
	add := func(name string, b driver.Backend) {
		out = append(out, driver.New(name, b,
			driver.WithLogger(d.log.Named(name)),
			driver.WithMetrics(d.metrics),
		))
	}

	switch cfg.GNSS.Source {
	case "nmea":
		name := "gnss.nmea"
		add(name, gnss.NewNMEABackend(gnss.NMEAConfig{
			Device:       cfg.GNSS.NMEA.Device,
			Baud:         cfg.GNSS.NMEA.Baud,
			StallTimeout: cfg.GNSS.NMEA.StallTimeout,
			Reopen:       reopenPolicy(cfg.GNSS.NMEA.Reopen),
		}, d.gnss, d.clk, d.log.Named(name), d.metrics))
	case "gpsd":
		name := "gnss.gpsd"
		add(name, gnss.NewGPSDBackend(cfg.GNSS.GPSD.Addr, d.gnss, d.clk, d.log.Named(name)))
	case "replay":
		name := "gnss.replay"
		add(name, gnss.NewReplayBackend(cfg.GNSS.Replay.ListenAddr, d.gnss, d.clk, d.log.Named(name), d.metrics))
	case "none":
	default:
		return nil, fmt.Errorf("unknown gnss source %q", cfg.GNSS.Source)
	}

	switch cfg.Sensors.Source {
	case "replay":
		name := "sensors.replay"
		add(name, sensors.NewReplayBackend(cfg.Sensors.Replay.ListenAddr, d.sensors, d.clk, d.log.Named(name), d.metrics))
	case "imu":
		name := "sensors.imu"
		c := cfg.Sensors.IMU
		add(name, sensors.NewIMUBackend(sensors.IMUConfig{
			Bus:             c.Bus,
			BusDriver:       c.BusDriver,
			Chip:            c.Chip,
			Address:         c.Address,
			SampleInterval:  c.SampleInterval,
			SamplesPerBatch: c.SamplesPerBatch,
			Average:         c.Average,
			MaxReadErrors:   c.MaxReadErrors,
			Reopen:          reopenPolicy(c.Reopen),
		}, d.sensors, d.clk, d.log.Named(name), d.metrics))
	case "none":
	default:
		return nil, fmt.Errorf("unknown sensors source %q", cfg.Sensors.Source)
	}
	return out, nil
}

// subscribe logs every delivered batch at debug level.
func subscribe(log *zap.SugaredLogger, g *store.GNSS, s *store.Sensors) {
	g.Position.Register(func(b []reading.Position) {
		p := b[len(b)-1]
		log.Debugw("position", "n", len(b), "ts", p.Timestamp, "lat", p.Latitude, "lon", p.Longitude,
			"fix", p.FixStatus.String(), "validity", fmt.Sprintf("%#x", p.Validity))
	})
	g.Time.Register(func(b []reading.Time) {
		t := b[len(b)-1]
		log.Debugw("time", "ts", t.Timestamp, "utc", fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
			t.Year, t.Month+1, t.Day, t.Hour, t.Minute, t.Second, t.Millisecond))
	})
	g.Satellites.Register(func(b []reading.SatelliteDetail) {
		log.Debugw("satellites", "n", len(b), "ts", b[len(b)-1].Timestamp)
	})
	g.Status.Register(func(b []reading.GNSSStatus) {
		log.Infow("gnss status", "status", b[len(b)-1].Status.String())
	})
	s.Acceleration.Register(func(b []reading.Acceleration) {
		a := b[len(b)-1]
		log.Debugw("acceleration", "n", len(b), "ts", a.Timestamp, "x", a.X, "y", a.Y, "z", a.Z)
	})
	s.Gyroscope.Register(func(b []reading.Gyroscope) {
		r := b[len(b)-1]
		log.Debugw("gyroscope", "n", len(b), "ts", r.Timestamp, "yaw", r.YawRate, "pitch", r.PitchRate, "roll", r.RollRate)
	})
	s.WheelTicks.Register(func(b []reading.WheelTicks) {
		log.Debugw("wheel ticks", "n", len(b), "ts", b[len(b)-1].Timestamp)
	})
	s.VehicleSpeed.Register(func(b []reading.VehicleSpeed) {
		v := b[len(b)-1]
		log.Debugw("vehicle speed", "n", len(b), "ts", v.Timestamp, "mps", v.Speed)
	})
	s.Status.Register(func(b []reading.SensorStatus) {
		log.Infow("sensors status", "status", b[len(b)-1].Status.String())
	})
}
