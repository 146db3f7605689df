// Package mpu6050 drives the InvenSense MPU-6050 accelerometer/gyroscope.
package mpu6050

import (
	"fmt"
	"time"

	"positioning-ng/internal/i2c"
)

var sleep = time.Sleep

const (
	addrDefault = 0x68

	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXoutH  = 0x3B // accel, temp, gyro are contiguous
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75
	whoAmIVal      = 0x68

	bitReset  = 0x80
	clkPLLX   = 0x01
	dlpf44Hz  = 0x03
	fsGyro250 = 0x00
	fsAccel2g = 0x00

	accelLSBPerG   = 16384.0
	gyroLSBPerDps  = 131.0
	tempLSBPerDegC = 340.0
	tempOffsetC    = 36.53
)

// Sample is one accel (g), gyro (deg/s) and die temperature (°C) reading.
type Sample struct {
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
	TempC      float64
}

type Device struct {
	dev i2c.RegIO
}

func DefaultAddress() uint16 { return addrDefault }

// New probes and configures the chip. sampleRateHz of 0 selects 100 Hz.
func New(dev i2c.RegIO, sampleRateHz int) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("mpu6050: dev is nil")
	}
	who, err := dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu6050: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("mpu6050: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 100
	}

	d := &Device{dev: dev}
	if err := dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return nil, fmt.Errorf("mpu6050: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)
	if err := dev.WriteReg(regPwrMgmt1, clkPLLX); err != nil {
		return nil, fmt.Errorf("mpu6050: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	// With the DLPF on the gyro output rate is 1 kHz/(div+1).
	div := 1000/sampleRateHz - 1
	if div < 0 {
		div = 0
	}
	if div > 255 {
		div = 255
	}
	for _, w := range [][2]byte{
		{regConfig, dlpf44Hz},
		{regSmplrtDiv, byte(div)},
		{regGyroConfig, fsGyro250},
		{regAccelConfig, fsAccel2g},
	} {
		if err := dev.WriteReg(w[0], w[1]); err != nil {
			return nil, fmt.Errorf("mpu6050: write reg 0x%02X failed: %w", w[0], err)
		}
	}
	return d, nil
}

func be16(b []byte) int16 { return int16(b[0])<<8 | int16(b[1]) }

func (d *Device) Read() (Sample, error) {
	var buf [14]byte
	if err := d.dev.ReadReg(regAccelXoutH, buf[:]); err != nil {
		return Sample{}, fmt.Errorf("mpu6050: read sensors failed: %w", err)
	}
	return Sample{
		Ax:    float64(be16(buf[0:])) / accelLSBPerG,
		Ay:    float64(be16(buf[2:])) / accelLSBPerG,
		Az:    float64(be16(buf[4:])) / accelLSBPerG,
		TempC: float64(be16(buf[6:]))/tempLSBPerDegC + tempOffsetC,
		Gx:    float64(be16(buf[8:])) / gyroLSBPerDps,
		Gy:    float64(be16(buf[10:])) / gyroLSBPerDps,
		Gz:    float64(be16(buf[12:])) / gyroLSBPerDps,
	}, nil
}
