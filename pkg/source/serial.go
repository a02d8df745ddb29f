package source

import (
	"fmt"
	"io"

	"github.com/pkg/term"
	"github.com/womat/debug"
)

// OpenSerial opens a serial device in raw mode.
// A baud rate of 0 leaves the speed of the device alone.
func OpenSerial(device string, baud int) (io.ReadCloser, error) {
	switch baud {
	case 0, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, baud)
	}

	t, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("can't open serial port %s: %w", device, err)
	}

	if baud > 0 {
		if err = t.SetSpeed(baud); err != nil {
			_ = t.Close()
			return nil, fmt.Errorf("can't set speed %d of %s: %w", baud, device, err)
		}
	}

	debug.InfoLog.Printf("serial port %s opened (%d baud)", device, baud)
	return t, nil
}
