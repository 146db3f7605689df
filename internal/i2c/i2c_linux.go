//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl numbers and flags from linux/i2c-dev.h and linux/i2c.h.
const (
	ioctlFuncs = 0x0705
	ioctlRdwr  = 0x0707

	funcI2C   = 0x00000001
	flagRead  = 0x0001
	maxMsgLen = 0xFFFF
)

var ErrClosed = errors.New("i2c: bus closed")

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type rdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is a /dev/i2c-N character device driven by I2C_RDWR. Transfers are
// serialized, so several Dev handles may share one Bus.
type Bus struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open opens the bus and checks that the adapter supports plain I2C
// transfers. SMBus-only adapters are rejected.
func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	var funcs uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlFuncs, uintptr(unsafe.Pointer(&funcs))); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("i2c: %s: query functionality: %w", path, errno)
	}
	if funcs&funcI2C == 0 {
		f.Close()
		return nil, fmt.Errorf("i2c: %s: adapter does not support I2C_RDWR", path)
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) Path() string { return b.path }

func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

func (b *Bus) Dev(addr uint16) *Dev {
	return &Dev{bus: b, addr: addr}
}

// Dev is a chip at a 7-bit address.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Addr() uint16 { return d.addr }

// ReadReg writes the register address and reads len(dst) bytes with a
// repeated start.
func (d *Dev) ReadReg(reg byte, dst []byte) error {
	return d.transfer([]byte{reg}, dst)
}

func (d *Dev) ReadRegU8(reg byte) (byte, error) {
	var v [1]byte
	if err := d.ReadReg(reg, v[:]); err != nil {
		return 0, err
	}
	return v[0], nil
}

func (d *Dev) WriteReg(reg, value byte) error {
	return d.transfer([]byte{reg, value}, nil)
}

func (d *Dev) transfer(w, r []byte) error {
	if d.addr == 0 || d.addr > 0x7F {
		return fmt.Errorf("i2c: invalid address 0x%02X", d.addr)
	}
	if len(w) > maxMsgLen || len(r) > maxMsgLen {
		return fmt.Errorf("i2c: transfer too long")
	}

	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: d.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: d.addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}

	d.bus.mu.Lock()
	defer d.bus.mu.Unlock()
	if d.bus.f == nil {
		return ErrClosed
	}
	data := rdwrIoctlData{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), ioctlRdwr, uintptr(unsafe.Pointer(&data))); errno != 0 {
		return fmt.Errorf("i2c: %s addr 0x%02X: %w", d.bus.path, d.addr, errno)
	}
	return nil
}
