package i2c

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestPeriphDev_RegisterAccess(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x68, W: []byte{0x75}, R: []byte{0x68}},
			{Addr: 0x68, W: []byte{0x6B, 0x01}},
			{Addr: 0x68, W: []byte{0x3B}, R: []byte{1, 2, 3}},
		},
		DontPanic: true,
	}
	d := NewPeriphDev(bus, 0x68)

	who, err := d.ReadRegU8(0x75)
	if err != nil || who != 0x68 {
		t.Fatalf("who=0x%02X err=%v", who, err)
	}
	if err := d.WriteReg(0x6B, 0x01); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	buf := make([]byte, 3)
	if err := d.ReadReg(0x3B, buf); err != nil {
		t.Fatalf("ReadReg: %v", err)
	}
	if buf[0] != 1 || buf[2] != 3 {
		t.Fatalf("buf=%v", buf)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenDevice_UnknownDriver(t *testing.T) {
	if _, err := OpenDevice("smbus", "/dev/i2c-1", 0x68); err == nil {
		t.Fatalf("expected error")
	}
}
