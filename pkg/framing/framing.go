// Package framing is the decoder of sync/length framed bit streams.
//
// A frame consists of an 8 bit sync pattern, an 8 bit length N (MSB first) and
// N payload bytes. The sync pattern is matched approximately: a window is
// accepted if at least MinMatch of its 8 bits agree with the pattern.
package framing

import (
	"errors"
	"fmt"

	"github.com/womat/debug"

	"pulsedec/pkg/bitqueue"
	"pulsedec/pkg/port"
)

const (
	// SearchingSync is the process state to find the sync pattern.
	SearchingSync State = iota
	// ReadingLength is the process state to read the length byte.
	ReadingLength
	// ReadingData is the process state to read the payload.
	ReadingData
)

// PatternBits is the width of the sync pattern and of the length field.
const PatternBits = 8

// State represents the state of the decoding process.
type State int

func (s State) String() string {
	switch s {
	case SearchingSync:
		return "searching sync"
	case ReadingLength:
		return "reading length"
	case ReadingData:
		return "reading data"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrInvalidConfig reports a malformed sync pattern, match count or buffer bounds.
	ErrInvalidConfig = errors.New("invalid framing configuration")
	// ErrFrameTruncated reports a frame in progress whose bits were dropped by the buffer trim.
	ErrFrameTruncated = errors.New("frame truncated by buffer trim")
)

// Pattern is the 8 bit sync pattern, first transmitted bit first.
type Pattern [PatternBits]port.Level

// ParsePattern converts a string of 8 '0'/'1' characters to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	if len(s) != PatternBits {
		return p, fmt.Errorf("%w: sync pattern %q must have %d bits", ErrInvalidConfig, s, PatternBits)
	}

	for i := 0; i < len(s); i++ {
		l, ok := port.ParseLevel(s[i])
		if !ok {
			return p, fmt.Errorf("%w: sync pattern %q contains %q", ErrInvalidConfig, s, s[i])
		}
		p[i] = l
	}
	return p, nil
}

func (p Pattern) String() string {
	return port.Format(p[:])
}

// Config defines the sync pattern and the bounds of the rolling bit buffer.
type Config struct {
	Pattern Pattern
	// MinMatch is the minimal count of bits agreeing with the pattern.
	MinMatch int
	// MaxBits is the buffer size which triggers a trim to the newest KeepBits bits.
	MaxBits  int
	KeepBits int
}

// DefaultConfig returns the sync pattern 10101010 (0xAA) with 5 matching bits
// and a buffer trimmed at 8000 to 4000 bits.
func DefaultConfig() Config {
	return Config{
		Pattern:  Pattern{1, 0, 1, 0, 1, 0, 1, 0},
		MinMatch: 5,
		MaxBits:  8000,
		KeepBits: 4000,
	}
}

// Validate checks the match count and the buffer bounds.
func (c Config) Validate() error {
	if c.MinMatch < 1 || c.MinMatch > PatternBits {
		return fmt.Errorf("%w: min match %d not in [1,%d]", ErrInvalidConfig, c.MinMatch, PatternBits)
	}
	if c.KeepBits < 1 || c.KeepBits > c.MaxBits {
		return fmt.Errorf("%w: keep %d bits of max %d bits", ErrInvalidConfig, c.KeepBits, c.MaxBits)
	}
	return nil
}

// Frame is a decoded frame.
type Frame struct {
	// SyncOffset is the buffer position of the matched sync window.
	SyncOffset int
	// SyncMatches is the count of bits agreeing with the sync pattern.
	SyncMatches int
	// Length is the payload length in bytes.
	Length int
	// Payload holds Length*8 bits.
	Payload []port.Level
}

// Decoder contains the state machine and the rolling bit buffer.
type Decoder struct {
	config Config
	state  State
	queue  bitqueue.Queue

	// frame is the frame in progress.
	frame Frame
}

// New returns a Decoder searching for the sync pattern.
func New(c Config) (*Decoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{config: c, state: SearchingSync}, nil
}

// State returns the current decoding state.
func (d *Decoder) State() State {
	return d.state
}

// Len returns the count of buffered bits.
func (d *Decoder) Len() int {
	return d.queue.Len()
}

// Reset empties the buffer and restarts searching the sync pattern.
func (d *Decoder) Reset() {
	d.queue.Reset()
	d.state = SearchingSync
	d.frame = Frame{}
}

// Push appends bits to the buffer, advances the state machine as long as
// enough bits are buffered and trims the buffer afterwards. It returns the
// completed frames. If the trim drops bits of a frame in progress, the frame
// is abandoned and ErrFrameTruncated is returned together with the frames
// completed before and after the trim.
func (d *Decoder) Push(bits []port.Level) ([]Frame, error) {
	var err error

	d.queue.Push(bits...)
	frames := d.advance(nil)

	if n := d.queue.Trim(d.config.MaxBits, d.config.KeepBits); n > 0 {
		debug.TraceLog.Printf("bit buffer trimmed by %d bits", n)

		if d.state != SearchingSync {
			err = fmt.Errorf("%w: %d bits dropped while %v", ErrFrameTruncated, n, d.state)
			debug.ErrorLog.Print(err)
			d.state = SearchingSync
			d.frame = Frame{}
			frames = d.advance(frames)
		}
	}

	return frames, err
}

// advance executes states until more bits are needed and appends the completed frames.
func (d *Decoder) advance(frames []Frame) []Frame {
	for {
		f, done, progress := d.step()
		if done {
			frames = append(frames, f)
		}
		if !progress {
			return frames
		}
	}
}

// step executes one state. progress is false if the state needs more bits.
func (d *Decoder) step() (f Frame, done, progress bool) {
	switch d.state {
	case SearchingSync:
		idx, matches := d.search()
		if idx < 0 {
			return f, false, false
		}

		debug.DebugLog.Printf("sync detected at %d (%d/%d bits)", idx, matches, PatternBits)
		d.queue.Discard(idx + PatternBits)
		d.frame = Frame{SyncOffset: idx, SyncMatches: matches}
		d.state = ReadingLength

	case ReadingLength:
		if d.queue.Len() < PatternBits {
			return f, false, false
		}

		n := 0
		for _, b := range d.queue.Take(PatternBits) {
			n = n<<1 | int(b)
		}
		debug.DebugLog.Printf("length detected: %d bytes", n)
		d.frame.Length = n
		d.state = ReadingData

	case ReadingData:
		n := d.frame.Length * 8
		if d.queue.Len() < n {
			return f, false, false
		}

		f = d.frame
		f.Payload = d.queue.Take(n)
		d.frame = Frame{}
		d.state = SearchingSync
		return f, true, true
	}

	return f, false, true
}

// search returns the first buffer position whose 8 bit window agrees with the
// pattern in at least MinMatch bits, or -1.
func (d *Decoder) search() (idx, matches int) {
	for i := 0; i+PatternBits <= d.queue.Len(); i++ {
		m := 0
		for j, p := range d.config.Pattern {
			if d.queue.At(i+j) == p {
				m++
			}
		}
		if m >= d.config.MinMatch {
			return i, m
		}
	}
	return -1, 0
}
