// Package compactor reduces an oversampled bit stream to one bit per symbol
// by majority vote and applies the polarity and phase corrections of a link.
package compactor

import (
	"errors"
	"fmt"

	"pulsedec/pkg/port"
)

// TieBreak is the level chosen when a block holds as many lows as highs.
const TieBreak = port.Low

// ErrInvalidConfig is returned for a compaction factor below 1 or a shift outside [0, SamplesPerBit).
var ErrInvalidConfig = errors.New("invalid compactor configuration")

// Config defines the compaction factor and the corrections applied afterwards.
type Config struct {
	// SamplesPerBit is the count of raw symbols per transmitted bit.
	SamplesPerBit int `yaml:"samplesperbit"`
	// Invert flips every compacted bit.
	Invert bool `yaml:"invert"`
	// Shift drops the first compacted bits to correct the sampling phase.
	Shift int `yaml:"shift"`
}

// Validate checks SamplesPerBit >= 1 and 0 <= Shift < SamplesPerBit.
func (c Config) Validate() error {
	if c.SamplesPerBit < 1 {
		return fmt.Errorf("%w: samples per bit %d < 1", ErrInvalidConfig, c.SamplesPerBit)
	}
	if c.Shift < 0 || c.Shift >= c.SamplesPerBit {
		return fmt.Errorf("%w: shift %d not in [0,%d)", ErrInvalidConfig, c.Shift, c.SamplesPerBit)
	}
	return nil
}

// Compact splits raw into blocks of exactly SamplesPerBit symbols, drops a trailing
// partial block and reduces each block to its majority level. Afterwards the
// polarity is inverted (if configured) and the first Shift bits are dropped.
// An invalid configuration yields no bits.
func Compact(raw []port.Level, c Config) []port.Level {
	if c.Validate() != nil {
		return nil
	}

	bits := majority(raw, c.SamplesPerBit)
	bits = correct(bits, c.Invert)
	if c.Shift >= len(bits) {
		return bits[:0]
	}
	return bits[c.Shift:]
}

// majority reduces every full block of n levels to the level occurring most often.
func majority(raw []port.Level, n int) []port.Level {
	out := make([]port.Level, 0, len(raw)/n)
	for i := 0; i+n <= len(raw); i += n {
		out = append(out, vote(raw[i:i+n]))
	}
	return out
}

func vote(block []port.Level) port.Level {
	high := 0
	for _, l := range block {
		if l == port.High {
			high++
		}
	}

	switch low := len(block) - high; {
	case high > low:
		return port.High
	case low > high:
		return port.Low
	default:
		return TieBreak
	}
}

func correct(bits []port.Level, invert bool) []port.Level {
	if invert {
		for i, b := range bits {
			bits[i] = b.Invert()
		}
	}
	return bits
}

// Stream compacts a stream delivered in chunks of arbitrary size.
// A partial block at the end of a chunk is completed by the next chunk and
// the phase shift is applied once at the start of the stream.
type Stream struct {
	config Config
	// pending holds the raw symbols of the incomplete trailing block.
	pending []port.Level
	// skip is the count of compacted bits still to drop for the phase shift.
	skip int
}

// NewStream returns a Stream for a validated configuration.
func NewStream(c Config) (*Stream, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Stream{config: c}
	s.Reset()
	return s, nil
}

// Write compacts the chunk and returns the bits completed by it.
func (s *Stream) Write(raw []port.Level) []port.Level {
	n := s.config.SamplesPerBit

	buf := append(s.pending, raw...)
	full := len(buf) - len(buf)%n

	bits := correct(majority(buf[:full], n), s.config.Invert)
	s.pending = append(make([]port.Level, 0, n), buf[full:]...)

	if s.skip > 0 {
		d := s.skip
		if d > len(bits) {
			d = len(bits)
		}
		bits = bits[d:]
		s.skip -= d
	}
	return bits
}

// Pending returns the count of raw symbols waiting for a complete block.
func (s *Stream) Pending() int {
	return len(s.pending)
}

// Reset discards the pending symbols and re-arms the phase shift.
func (s *Stream) Reset() {
	s.pending = nil
	s.skip = s.config.Shift
}
