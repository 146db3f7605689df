package icm20948

import (
	"fmt"
	"time"

	"positioning-ng/internal/i2c"
)

var sleep = time.Sleep

// Minimal ICM-20948 driver: probe, configure, read accel/gyro/temperature.
// WHO_AM_I at 0x00 reads 0xEA.

const (
	addrDefault = 0x68

	regWhoAmI  = 0x00
	whoAmIVal  = 0xEA
	regBankSel = 0x7F

	// Bank 0.
	regPwrMgmt1   = 0x06
	bitReset      = 0x80
	regIntEnable  = 0x10
	regAccelXoutH = 0x2D // accel, gyro, temp are contiguous

	// Bank 2.
	bank2           = 2
	regGyroSmplrt   = 0x00
	regGyroConfig   = 0x01
	regAccelSmplrt2 = 0x11
	regAccelConfig  = 0x14

	fsGyro250dps = 0x00
	fsAccel4g    = 0x02

	tempSensitivity = 333.87
	tempOffset      = 21.0
)

// Sample is one accel (g), gyro (deg/s) and die temperature (°C) reading.
type Sample struct {
	Ax, Ay, Az float64
	Gx, Gy, Gz float64
	TempC      float64
}

type Device struct {
	dev i2c.RegIO

	curBank    byte
	scaleAccel float64
	scaleGyro  float64
}

func DefaultAddress() uint16 { return addrDefault }

// New probes and configures the chip. sampleRateHz of 0 selects 50 Hz.
func New(dev i2c.RegIO, sampleRateHz int) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	d := &Device{dev: dev, curBank: 0xFF}

	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("icm20948: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("icm20948: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 50
	}
	if err := d.init(sampleRateHz); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init(rateHz int) error {
	if err := d.setBank(0); err != nil {
		return err
	}
	_ = d.dev.WriteReg(regIntEnable, 0x00)

	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("icm20948: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)
	// Reset also clears the bank select.
	d.curBank = 0xFF

	// CLKSEL=1: auto-select the PLL.
	if err := d.dev.WriteReg(regPwrMgmt1, 0x01); err != nil {
		return fmt.Errorf("icm20948: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	if err := d.setBank(bank2); err != nil {
		return err
	}
	// Output rate is 1125/(div+1) Hz.
	div := 1125/rateHz - 1
	if div < 0 {
		div = 0
	}
	if div > 255 {
		div = 255
	}
	_ = d.dev.WriteReg(regGyroSmplrt, byte(div))
	_ = d.dev.WriteReg(regAccelSmplrt2, byte(div))

	if err := d.dev.WriteReg(regGyroConfig, fsGyro250dps); err != nil {
		return fmt.Errorf("icm20948: gyro config failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelConfig, fsAccel4g); err != nil {
		return fmt.Errorf("icm20948: accel config failed: %w", err)
	}
	if err := d.setBank(0); err != nil {
		return err
	}

	d.scaleAccel = 4.0 / 32768.0
	d.scaleGyro = 250.0 / 32768.0
	return nil
}

func (d *Device) setBank(bank byte) error {
	if d.curBank == bank {
		return nil
	}
	if err := d.dev.WriteReg(regBankSel, bank<<4); err != nil {
		return fmt.Errorf("icm20948: set bank %d failed: %w", bank, err)
	}
	d.curBank = bank
	return nil
}

func be16(b []byte) int16 { return int16(b[0])<<8 | int16(b[1]) }

func (d *Device) Read() (Sample, error) {
	if d == nil {
		return Sample{}, fmt.Errorf("icm20948: device is nil")
	}
	if err := d.setBank(0); err != nil {
		return Sample{}, err
	}

	buf := make([]byte, 14)
	if err := d.dev.ReadReg(regAccelXoutH, buf); err != nil {
		return Sample{}, fmt.Errorf("icm20948: read sensors failed: %w", err)
	}
	return Sample{
		Ax:    float64(be16(buf[0:])) * d.scaleAccel,
		Ay:    float64(be16(buf[2:])) * d.scaleAccel,
		Az:    float64(be16(buf[4:])) * d.scaleAccel,
		Gx:    float64(be16(buf[6:])) * d.scaleGyro,
		Gy:    float64(be16(buf[8:])) * d.scaleGyro,
		Gz:    float64(be16(buf[10:])) * d.scaleGyro,
		TempC: float64(be16(buf[12:]))/tempSensitivity + tempOffset,
	}, nil
}
