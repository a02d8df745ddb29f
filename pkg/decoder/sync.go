package decoder

import (
	"time"

	"github.com/google/uuid"
	"github.com/womat/debug"

	"pulsedec/pkg/assembler"
	"pulsedec/pkg/compactor"
	"pulsedec/pkg/framing"
	"pulsedec/pkg/port"
)

// SyncConfig defines the compaction front end and the framing of the sync pipeline.
type SyncConfig struct {
	Compactor compactor.Config
	Framing   framing.Config
}

// Sync decodes sync/length frames from chunks of '0'/'1' symbols.
type Sync struct {
	stream   *compactor.Stream
	framer   *framing.Decoder
	counters Counters
}

// NewSync returns a sync pipeline searching for the sync pattern.
func NewSync(c SyncConfig) (*Sync, error) {
	stream, err := compactor.NewStream(c.Compactor)
	if err != nil {
		return nil, err
	}

	framer, err := framing.New(c.Framing)
	if err != nil {
		return nil, err
	}

	return &Sync{stream: stream, framer: framer}, nil
}

// Feed filters the chunk to '0'/'1' symbols, compacts them and advances the framing.
// A frame truncated by the buffer trim returns framing.ErrFrameTruncated.
func (s *Sync) Feed(chunk []byte) ([]Frame, error) {
	s.counters.Units.Add(1)

	raw := port.ParseLevels(string(chunk))
	if len(raw) == 0 {
		s.counters.Malformed.Add(1)
		return nil, nil
	}

	ff, err := s.framer.Push(s.stream.Write(raw))
	if err != nil {
		s.counters.Errors.Add(1)
	}

	frames := make([]Frame, 0, len(ff))
	for _, f := range ff {
		frames = append(frames, s.frame(f))
	}
	s.counters.Frames.Add(uint64(len(frames)))

	return frames, err
}

func (s *Sync) frame(f framing.Frame) Frame {
	b := assembler.Pack(f.Payload)

	frame := Frame{
		ID:          uuid.New(),
		Protocol:    ProtocolSync,
		Received:    time.Now(),
		Outcome:     assembler.Classify(b),
		Text:        assembler.Text(b),
		Bytes:       b,
		Bits:        port.Format(f.Payload),
		BitCount:    len(f.Payload),
		SyncOffset:  f.SyncOffset,
		SyncMatches: f.SyncMatches,
		Length:      f.Length,
	}

	switch frame.Outcome {
	case assembler.OutcomeText:
		debug.InfoLog.Printf("message received: %q", frame.Text)
	default:
		debug.InfoLog.Printf("%d bytes received but not decodable (%v)", f.Length, frame.Outcome)
	}
	return frame
}

// Reset discards the pending symbols and the buffered bits.
func (s *Sync) Reset() {
	s.stream.Reset()
	s.framer.Reset()
}

// Counters returns the pipeline counters.
func (s *Sync) Counters() *Counters {
	return &s.counters
}

// State returns the state of the framing decoder.
func (s *Sync) State() framing.State {
	return s.framer.State()
}
