// Package decoder wires the decoding stages into pipelines which turn an input
// feed into frames. Both pipelines implement FrameDecoder, so callers can swap
// the line protocol without changing the feed or the frame handling.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/womat/debug"

	"pulsedec/pkg/assembler"
	"pulsedec/pkg/clock"
)

// Protocol names a line protocol.
type Protocol string

const (
	// ProtocolManchester decodes amplitude samples, one per line.
	ProtocolManchester Protocol = "manchester"
	// ProtocolSync decodes sync/length frames from '0'/'1' symbol chunks.
	ProtocolSync Protocol = "sync"
)

// ErrUnknownProtocol is returned by New for a protocol other than manchester or sync.
var ErrUnknownProtocol = errors.New("unknown protocol")

// FrameDecoder is implemented by the pipelines.
type FrameDecoder interface {
	// Feed consumes one input unit (a line or a chunk) and returns the frames completed by it.
	// Errors are reported per capture or frame, the decoder stays usable.
	Feed(unit []byte) ([]Frame, error)
	// Reset discards all in-flight state, e.g. a partial capture.
	Reset()
	// Counters returns the unit, capture and frame counts since creation.
	Counters() *Counters
}

// Frame is a decoded message with the diagnostics of its decoding.
type Frame struct {
	ID       uuid.UUID         `json:"id"`
	Protocol Protocol          `json:"protocol"`
	Received time.Time         `json:"received"`
	Outcome  assembler.Outcome `json:"outcome"`
	Text     string            `json:"text"`
	Bytes    []byte            `json:"bytes"`
	// Bits is the decoded bit sequence as '0'/'1' characters.
	Bits     string `json:"bits"`
	BitCount int    `json:"bitCount"`

	// manchester diagnostics
	SampleCount int           `json:"sampleCount,omitempty"`
	BitPeriod   int           `json:"bitPeriod,omitempty"`
	PulseStart  int           `json:"pulseStart,omitempty"`
	PulseEnd    int           `json:"pulseEnd,omitempty"`
	PulseWidth  time.Duration `json:"pulseWidth,omitempty"`
	Windows     int           `json:"windows,omitempty"`
	Accepted    int           `json:"accepted,omitempty"`
	Skipped     int           `json:"skipped,omitempty"`
	Rejected    int           `json:"rejected,omitempty"`
	Stats       *clock.Stats  `json:"stats,omitempty"`

	// sync diagnostics
	SyncOffset  int `json:"syncOffset,omitempty"`
	SyncMatches int `json:"syncMatches,omitempty"`
	Length      int `json:"length,omitempty"`
}

// Counters are updated by the decoding goroutine and may be read concurrently.
type Counters struct {
	Units     atomic.Uint64
	Malformed atomic.Uint64
	Captures  atomic.Uint64
	Frames    atomic.Uint64
	Errors    atomic.Uint64
}

// Feed delivers input units in arrival order.
// Next blocks until a unit is available and returns io.EOF at the end of the feed.
type Feed interface {
	Next() ([]byte, error)
}

// Handler receives the results of Run.
type Handler interface {
	HandleFrame(Frame)
	// HandleError receives decoding errors like clock.ErrNoPulseDetected.
	HandleError(error)
}

// Run feeds every unit of feed to dec in arrival order and passes the results to h.
// The context is checked for every unit; on cancellation the in-flight state
// of dec is discarded and ctx.Err() is returned. At the end of the feed the
// in-flight state is discarded as well and Run returns nil.
func Run(ctx context.Context, feed Feed, dec FrameDecoder, h Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			dec.Reset()
			return err
		}

		unit, err := feed.Next()

		if ctxErr := ctx.Err(); ctxErr != nil {
			dec.Reset()
			return ctxErr
		}

		// an empty unit is data (e.g. an empty line) unless it comes with an error
		if err == nil || len(unit) > 0 {
			frames, decErr := dec.Feed(unit)
			if decErr != nil {
				h.HandleError(decErr)
			}
			for _, f := range frames {
				h.HandleFrame(f)
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			debug.InfoLog.Print("end of input feed")
			dec.Reset()
			return nil
		case err != nil:
			dec.Reset()
			return fmt.Errorf("reading input feed: %w", err)
		}
	}
}

// New returns the pipeline of the given protocol.
func New(p Protocol, mc ManchesterConfig, sc SyncConfig) (FrameDecoder, error) {
	switch p {
	case ProtocolManchester:
		return NewManchester(mc)
	case ProtocolSync:
		return NewSync(sc)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownProtocol, p)
	}
}
