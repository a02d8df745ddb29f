// Package source supplies the input feeds of the decoders: sample lines or
// symbol chunks read from a serial device, a GPIO line, a file or stdin.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/womat/debug"
)

const (
	KindSerial = "serial"
	KindGPIO   = "gpio"
	KindFile   = "file"
	KindStdin  = "stdin"

	// DefaultChunkSize is the count of bytes read per chunk.
	DefaultChunkSize = 512
)

var (
	// ErrInvalidParam reports an unknown input kind, terminator or sampling rate.
	ErrInvalidParam = errors.New("invalid parameters")
	// ErrUnsupportedBaud reports a baud rate the serial device can't be set to.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
)

// Config defines the input device.
type Config struct {
	// Kind is one of serial, gpio, file or stdin.
	Kind string `yaml:"kind"`
	// Device is the serial device (e.g. /dev/ttyACM0) or the file name.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// Chip and Line select the GPIO line, Rate is its sampling rate in Hz.
	Chip       string  `yaml:"chip"`
	Line       int     `yaml:"line"`
	Terminator string  `yaml:"terminator"`
	Rate       float64 `yaml:"rate"`
	// ChunkSize is the size of a symbol chunk for the sync decoder.
	ChunkSize int `yaml:"chunksize"`
}

// Open opens the configured input.
func Open(c Config) (io.ReadCloser, error) {
	switch c.Kind {
	case KindSerial:
		return OpenSerial(c.Device, c.Baud)
	case KindGPIO:
		s, err := OpenGPIO(c.Chip, c.Line, c.Terminator, c.Rate)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindFile:
		f, err := os.Open(c.Device)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindStdin:
		return io.NopCloser(os.Stdin), nil
	default:
		return nil, fmt.Errorf("%w: input kind %q", ErrInvalidParam, c.Kind)
	}
}

// LineFeed delivers one line per unit, without the line terminator.
type LineFeed struct {
	scanner *bufio.Scanner
}

// NewLineFeed returns a LineFeed reading r.
func NewLineFeed(r io.Reader) *LineFeed {
	return &LineFeed{scanner: bufio.NewScanner(r)}
}

// Next returns the next line or io.EOF.
func (f *LineFeed) Next() ([]byte, error) {
	if f.scanner.Scan() {
		return append([]byte(nil), f.scanner.Bytes()...), nil
	}
	if err := f.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ChunkFeed delivers the bytes of a single read per unit.
type ChunkFeed struct {
	r   io.Reader
	buf []byte
}

// NewChunkFeed returns a ChunkFeed reading up to size bytes per unit.
func NewChunkFeed(r io.Reader, size int) *ChunkFeed {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ChunkFeed{r: r, buf: make([]byte, size)}
}

// Next returns the next chunk. Data read together with an error is returned with it.
func (f *ChunkFeed) Next() ([]byte, error) {
	n, err := f.r.Read(f.buf)
	if n == 0 && err == nil {
		debug.TraceLog.Print("empty read")
	}
	return append([]byte(nil), f.buf[:n]...), err
}
