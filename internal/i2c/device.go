package i2c

import (
	"fmt"
	"strings"
)

// RegIO is register access to one chip.
type RegIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

// Device is a chip on a bus it owns. Close releases the bus.
type Device interface {
	RegIO
	Close() error
}

const (
	DriverIoctl  = "ioctl"
	DriverPeriph = "periph"
)

// OpenDevice opens bus with the named driver and addresses the chip at addr.
func OpenDevice(driver, bus string, addr uint16) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverIoctl:
		b, err := Open(bus)
		if err != nil {
			return nil, fmt.Errorf("i2c: open %s: %w", bus, err)
		}
		return &busDevice{Dev: b.Dev(addr), bus: b}, nil
	case DriverPeriph:
		return OpenPeriph(bus, addr)
	default:
		return nil, fmt.Errorf("i2c: unknown bus driver %q", driver)
	}
}

type busDevice struct {
	*Dev
	bus *Bus
}

func (d *busDevice) Close() error { return d.bus.Close() }
