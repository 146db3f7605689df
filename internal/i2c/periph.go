package i2c

import (
	"fmt"
	"strings"

	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphDev addresses one chip on a periph.io bus.
type PeriphDev struct {
	bus  pi2c.Bus
	addr uint16
}

// OpenPeriph initializes the periph host drivers and opens bus, which may be
// a /dev/i2c-N path, a bus name or a bus number.
func OpenPeriph(bus string, addr uint16) (*PeriphDev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", err)
	}
	b, err := i2creg.Open(strings.TrimPrefix(bus, "/dev/i2c-"))
	if err != nil {
		return nil, fmt.Errorf("i2c: periph open %s: %w", bus, err)
	}
	return NewPeriphDev(b, addr), nil
}

func NewPeriphDev(bus pi2c.Bus, addr uint16) *PeriphDev {
	return &PeriphDev{bus: bus, addr: addr}
}

func (d *PeriphDev) ReadReg(reg byte, dst []byte) error {
	return d.bus.Tx(d.addr, []byte{reg}, dst)
}

func (d *PeriphDev) ReadRegU8(reg byte) (byte, error) {
	var b [1]byte
	if err := d.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *PeriphDev) WriteReg(reg, value byte) error {
	return d.bus.Tx(d.addr, []byte{reg, value}, nil)
}

// Close closes the bus when it is closable.
func (d *PeriphDev) Close() error {
	if c, ok := d.bus.(pi2c.BusCloser); ok {
		return c.Close()
	}
	return nil
}
