package grbl

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaud is the Grbl 1.1 default serial speed.
const DefaultBaud = 115200

// OpenSerial opens the serial device at name. Reads block until data
// arrives; closing the port unblocks a pending read, which is how a Session
// stops its reader.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return p, nil
}
