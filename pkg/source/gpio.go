package source

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// valuer reads the current level of a line.
type valuer interface {
	Value() (int, error)
}

// GPIOSampler samples a GPIO line at a fixed rate and delivers each sample as
// a '0' or '1' character.
type GPIOSampler struct {
	line   valuer
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
	// release frees the line and the chip.
	release func() error
}

// OpenGPIO requests a line of a GPIO chip as input and starts sampling it at rate Hz.
// terminator is one of pullup, pulldown or none.
func OpenGPIO(chip string, offset int, terminator string, rate float64) (*GPIOSampler, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sampling rate %v", ErrInvalidParam, rate)
	}

	var opts []gpiod.LineReqOption
	switch terminator {
	case "pullup":
		opts = []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithPullUp}
	case "pulldown":
		opts = []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithPullDown}
	case "none", "":
		opts = []gpiod.LineReqOption{gpiod.AsInput}
	default:
		return nil, fmt.Errorf("%w: terminator %q", ErrInvalidParam, terminator)
	}

	c, err := gpiod.NewChip(chip)
	if err != nil {
		return nil, err
	}

	l, err := c.RequestLine(offset, opts...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	debug.InfoLog.Printf("sampling gpio %s line %d at %v Hz", chip, offset, rate)
	s := newSampler(l, rate)
	s.release = func() error {
		_ = l.Close()
		return c.Close()
	}
	return s, nil
}

func newSampler(line valuer, rate float64) *GPIOSampler {
	return &GPIOSampler{
		line:   line,
		ticker: time.NewTicker(time.Duration(float64(time.Second) / rate)),
		done:   make(chan struct{}),
	}
}

// Read blocks until p is filled with samples. After Close it returns io.EOF.
func (s *GPIOSampler) Read(p []byte) (int, error) {
	for i := range p {
		// a stopped sampler must not deliver a pending tick
		select {
		case <-s.done:
			if i > 0 {
				return i, nil
			}
			return 0, io.EOF
		default:
		}

		select {
		case <-s.done:
			if i > 0 {
				return i, nil
			}
			return 0, io.EOF
		case <-s.ticker.C:
		}

		v, err := s.line.Value()
		if err != nil {
			return i, err
		}
		p[i] = '0' + byte(v&1)
	}
	return len(p), nil
}

// Close stops sampling and releases the line.
func (s *GPIOSampler) Close() (err error) {
	s.once.Do(func() {
		close(s.done)
		s.ticker.Stop()
		if s.release != nil {
			err = s.release()
		}
	})
	return err
}
