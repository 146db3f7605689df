package gnss

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// readTimeout is how long a serial read waits for the first byte. Reads
// always return so a stop is noticed.
const readTimeout = 100 * time.Millisecond

type openPortFunc func(device string, baud int) (io.ReadWriteCloser, error)

func openSerial(device string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:              device,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(readTimeout / time.Millisecond),
		MinimumReadSize:       0,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", device, baud, err)
	}
	return port, nil
}

var statDevice = os.Stat

func autoDetectDevice() string {
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := statDevice(p); err == nil {
			return p
		}
	}
	return ""
}
