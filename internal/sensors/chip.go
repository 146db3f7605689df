package sensors

import (
	"fmt"
	"strings"

	"positioning-ng/internal/i2c"
	"positioning-ng/internal/sensors/icm20948"
	"positioning-ng/internal/sensors/mpu6050"
)

const (
	ChipMPU6050  = "mpu6050"
	ChipICM20948 = "icm20948"
)

// imuSample is accel in g, gyro in deg/s, temperature in °C.
type imuSample struct {
	ax, ay, az float64
	gx, gy, gz float64
	temp       float64
}

type chipReader func() (imuSample, error)

func probeChip(chip string, dev i2c.RegIO, rateHz int) (chipReader, error) {
	switch strings.ToLower(strings.TrimSpace(chip)) {
	case "", ChipMPU6050:
		d, err := mpu6050.New(dev, rateHz)
		if err != nil {
			return nil, err
		}
		return func() (imuSample, error) {
			s, err := d.Read()
			return imuSample{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, s.TempC}, err
		}, nil
	case ChipICM20948:
		d, err := icm20948.New(dev, rateHz)
		if err != nil {
			return nil, err
		}
		return func() (imuSample, error) {
			s, err := d.Read()
			return imuSample{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz, s.TempC}, err
		}, nil
	default:
		return nil, fmt.Errorf("sensors: unknown chip %q", chip)
	}
}

// DefaultAddress is the chip's default 7-bit address.
func DefaultAddress(chip string) uint16 {
	if strings.EqualFold(chip, ChipICM20948) {
		return icm20948.DefaultAddress()
	}
	return mpu6050.DefaultAddress()
}
