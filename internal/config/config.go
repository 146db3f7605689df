package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DeviceEnv overrides gnss.nmea.device when set.
const DeviceEnv = "GNSS_DEVICE"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	GNSS    GNSSConfig    `yaml:"gnss"`
	Sensors SensorsConfig `yaml:"sensors"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type MetricsConfig struct {
	// Listen serves /metrics when non-empty, e.g. ":9100".
	Listen string `yaml:"listen"`
}

type GNSSConfig struct {
	Source string       `yaml:"source"`
	NMEA   NMEAConfig   `yaml:"nmea"`
	GPSD   GPSDConfig   `yaml:"gpsd"`
	Replay ReplayConfig `yaml:"replay"`
}

type NMEAConfig struct {
	Device       string        `yaml:"device"`
	Baud         int           `yaml:"baud"`
	StallTimeout time.Duration `yaml:"stall_timeout"`
	Reopen       ReopenConfig  `yaml:"reopen"`
}

type GPSDConfig struct {
	Addr string `yaml:"addr"`
}

type ReplayConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ReopenConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type SensorsConfig struct {
	Source string       `yaml:"source"`
	Replay ReplayConfig `yaml:"replay"`
	IMU    IMUConfig    `yaml:"imu"`
}

type IMUConfig struct {
	Bus             string        `yaml:"bus"`
	BusDriver       string        `yaml:"bus_driver"`
	Chip            string        `yaml:"chip"`
	Address         uint16        `yaml:"address"`
	SampleInterval  time.Duration `yaml:"sample_interval"`
	SamplesPerBatch int           `yaml:"samples_per_batch"`
	Average         bool          `yaml:"average"`
	MaxReadErrors   int           `yaml:"max_read_errors"`
	Reopen          ReopenConfig  `yaml:"reopen"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if dev := strings.TrimSpace(os.Getenv(DeviceEnv)); dev != "" {
		cfg.GNSS.NMEA.Device = dev
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func oneOf(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s", key, strings.Join(allowed, ", "))
}

func (r *ReopenConfig) normalize(key string) error {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("%s.max_attempts must be > 0", key)
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 500 * time.Millisecond
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = 8 * time.Second
	}
	if r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("%s.max_delay must be >= %s.initial_delay", key, key)
	}
	return nil
}

func (cfg *Config) normalize() error {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if err := oneOf("log.level", cfg.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}

	g := &cfg.GNSS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "nmea"
	}
	if err := oneOf("gnss.source", g.Source, "nmea", "gpsd", "replay", "none"); err != nil {
		return err
	}
	if g.NMEA.Baud == 0 {
		g.NMEA.Baud = 9600
	}
	switch g.NMEA.Baud {
	case 4800, 9600, 19200, 38400, 57600, 115200:
	default:
		return fmt.Errorf("gnss.nmea.baud %d is not supported", g.NMEA.Baud)
	}
	if g.NMEA.StallTimeout <= 0 {
		g.NMEA.StallTimeout = 5 * time.Second
	}
	if err := g.NMEA.Reopen.normalize("gnss.nmea.reopen"); err != nil {
		return err
	}
	if strings.TrimSpace(g.GPSD.Addr) == "" {
		g.GPSD.Addr = "127.0.0.1:2947"
	}
	if g.Replay.ListenAddr == "" {
		g.Replay.ListenAddr = ":9930"
	}

	s := &cfg.Sensors
	s.Source = strings.ToLower(strings.TrimSpace(s.Source))
	if s.Source == "" {
		s.Source = "none"
	}
	if err := oneOf("sensors.source", s.Source, "replay", "imu", "none"); err != nil {
		return err
	}
	if s.Replay.ListenAddr == "" {
		s.Replay.ListenAddr = ":9931"
	}

	imu := &s.IMU
	if imu.Bus == "" {
		imu.Bus = "/dev/i2c-1"
	}
	imu.BusDriver = strings.ToLower(strings.TrimSpace(imu.BusDriver))
	if imu.BusDriver == "" {
		imu.BusDriver = "ioctl"
	}
	if err := oneOf("sensors.imu.bus_driver", imu.BusDriver, "ioctl", "periph"); err != nil {
		return err
	}
	imu.Chip = strings.ToLower(strings.TrimSpace(imu.Chip))
	if imu.Chip == "" {
		imu.Chip = "mpu6050"
	}
	if err := oneOf("sensors.imu.chip", imu.Chip, "mpu6050", "icm20948"); err != nil {
		return err
	}
	if imu.Address == 0 {
		imu.Address = 0x68
	}
	if imu.Address > 0x7F {
		return fmt.Errorf("sensors.imu.address 0x%X is not a 7-bit address", imu.Address)
	}
	if imu.SampleInterval <= 0 {
		imu.SampleInterval = 10 * time.Millisecond
	}
	if imu.SamplesPerBatch <= 0 {
		imu.SamplesPerBatch = 10
	}
	if imu.MaxReadErrors <= 0 {
		imu.MaxReadErrors = 50
	}
	return imu.Reopen.normalize("sensors.imu.reopen")
}
