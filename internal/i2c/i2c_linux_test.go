//go:build linux

package i2c

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func devNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return &Bus{f: f, path: "/dev/null"}
}

func TestTransfer_InvalidAddr(t *testing.T) {
	b := devNullBus(t)
	for _, addr := range []uint16{0, 0x80} {
		err := b.Dev(addr).WriteReg(0x00, 0x01)
		if err == nil || !strings.Contains(err.Error(), "invalid address") {
			t.Fatalf("addr 0x%X: err=%v want invalid address", addr, err)
		}
	}
}

func TestTransfer_EmptyIsNoop(t *testing.T) {
	b := devNullBus(t)
	if err := b.Dev(0x68).transfer(nil, nil); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestTransfer_ClosedBus(t *testing.T) {
	b := devNullBus(t)
	d := b.Dev(0x68)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := d.ReadRegU8(0x75); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v want ErrClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpen_RejectsNonAdapter(t *testing.T) {
	if _, err := Open("/dev/null"); err == nil {
		t.Fatalf("expected error opening /dev/null as an i2c adapter")
	}
}
