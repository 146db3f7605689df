package icm20948

import (
	"errors"
	"testing"
	"time"
)

type fakeI2C struct {
	regs   map[byte][]byte
	writes []writeOp

	readErrFor map[byte]error
}

type writeOp struct {
	reg byte
	val byte
}

func (f *fakeI2C) ReadRegU8(reg byte) (byte, error) {
	if err := f.readErrFor[reg]; err != nil {
		return 0, err
	}
	b := f.regs[reg]
	if len(b) < 1 {
		return 0, errors.New("no reg")
	}
	return b[0], nil
}

func (f *fakeI2C) ReadReg(reg byte, dst []byte) error {
	if err := f.readErrFor[reg]; err != nil {
		return err
	}
	b := f.regs[reg]
	if len(b) < len(dst) {
		return errors.New("short reg")
	}
	copy(dst, b[:len(dst)])
	return nil
}

func (f *fakeI2C) WriteReg(reg, value byte) error {
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	return nil
}

func noSleep(t *testing.T) {
	oldSleep := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = oldSleep })
}

func TestNew_WhoAmIMismatch(t *testing.T) {
	noSleep(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {0x00}}}
	if _, err := New(f, 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_WritesExpectedInitRegisters(t *testing.T) {
	noSleep(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	if _, err := New(f, 100); err != nil {
		t.Fatalf("New: %v", err)
	}

	var sawReset, sawWake, sawBank2, sawDiv bool
	for _, w := range f.writes {
		switch {
		case w.reg == regPwrMgmt1 && w.val == bitReset:
			sawReset = true
		case w.reg == regPwrMgmt1 && w.val == 0x01:
			sawWake = true
		case w.reg == regBankSel && w.val == bank2<<4:
			sawBank2 = true
		case w.reg == regGyroSmplrt && w.val == 10:
			sawDiv = true
		}
	}
	if !sawReset || !sawWake {
		t.Fatalf("expected reset and wake writes to PWR_MGMT_1: %+v", f.writes)
	}
	if !sawBank2 {
		t.Fatalf("expected bank2 select write")
	}
	if !sawDiv {
		t.Fatalf("expected divider 10 for 100 Hz")
	}
}

func TestRead_ScalesAccelGyroTemp(t *testing.T) {
	noSleep(t)
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}}
	// ax=16384 -> 2g at 4g full scale, gx=16384 -> 125 dps at 250 dps.
	f.regs[regAccelXoutH] = []byte{
		0x40, 0x00, // ax
		0x00, 0x00, // ay
		0xC0, 0x00, // az = -2g
		0x40, 0x00, // gx
		0x00, 0x00, // gy
		0xC0, 0x00, // gz = -125 dps
		0x00, 0x00, // temp -> 21 °C
	}

	d, err := New(f, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Ax < 1.99 || s.Ax > 2.01 {
		t.Fatalf("Ax=%v want ~2.0", s.Ax)
	}
	if s.Az > -1.99 || s.Az < -2.01 {
		t.Fatalf("Az=%v want ~-2.0", s.Az)
	}
	if s.Gx < 124.9 || s.Gx > 125.1 {
		t.Fatalf("Gx=%v want ~125", s.Gx)
	}
	if s.Gz > -124.9 || s.Gz < -125.1 {
		t.Fatalf("Gz=%v want ~-125", s.Gz)
	}
	if s.TempC != 21 {
		t.Fatalf("TempC=%v want 21", s.TempC)
	}
}

func TestRead_PropagatesBusError(t *testing.T) {
	noSleep(t)
	boom := errors.New("nack")
	f := &fakeI2C{regs: map[byte][]byte{regWhoAmI: {whoAmIVal}}, readErrFor: map[byte]error{regAccelXoutH: boom}}
	d, err := New(f, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d.Read(); !errors.Is(err, boom) {
		t.Fatalf("err=%v want %v", err, boom)
	}
}
