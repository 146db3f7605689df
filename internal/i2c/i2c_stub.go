//go:build !linux

package i2c

import "errors"

var (
	ErrClosed      = errors.New("i2c: bus closed")
	errUnsupported = errors.New("i2c: ioctl bus needs linux")
)

type Bus struct{}

type Dev struct{ addr uint16 }

func Open(path string) (*Bus, error) { return nil, errUnsupported }

func (b *Bus) Path() string                 { return "" }
func (b *Bus) Close() error                 { return nil }
func (b *Bus) Dev(addr uint16) *Dev         { return &Dev{addr: addr} }
func (d *Dev) Addr() uint16                 { return d.addr }
func (d *Dev) ReadReg(byte, []byte) error   { return errUnsupported }
func (d *Dev) ReadRegU8(byte) (byte, error) { return 0, errUnsupported }
func (d *Dev) WriteReg(byte, byte) error    { return errUnsupported }
