package decoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/womat/debug"

	"pulsedec/pkg/assembler"
	"pulsedec/pkg/clock"
	"pulsedec/pkg/manchester"
	"pulsedec/pkg/port"
	"pulsedec/pkg/signal"
	"pulsedec/pkg/trigger"
)

// ManchesterConfig defines the trigger and the reporting of the manchester pipeline.
type ManchesterConfig struct {
	// Threshold is the amplitude which arms the trigger and separates low from high.
	Threshold float64 `yaml:"threshold"`
	// RunLimit is the count of consecutive samples below Threshold which ends a capture.
	RunLimit int `yaml:"runlimit"`
	// SampleRate (Hz) converts the pulse width to a duration, 0 disables it.
	SampleRate float64 `yaml:"samplerate"`
}

// Manchester decodes captures of amplitude samples delivered one per line.
type Manchester struct {
	config   ManchesterConfig
	trigger  *trigger.Controller
	counters Counters
}

// NewManchester returns an idle manchester pipeline.
func NewManchester(c ManchesterConfig) (*Manchester, error) {
	t, err := trigger.New(c.Threshold, c.RunLimit)
	if err != nil {
		return nil, err
	}
	return &Manchester{config: c, trigger: t}, nil
}

// Feed parses one line. Malformed lines are dropped without touching the trigger.
// When the line seals a capture, the capture is decoded. A capture without a
// complete high pulse returns clock.ErrNoPulseDetected.
func (m *Manchester) Feed(line []byte) ([]Frame, error) {
	m.counters.Units.Add(1)

	sample, ok := ParseSample(line)
	if !ok {
		m.counters.Malformed.Add(1)
		debug.TraceLog.Printf("dropped malformed line %q", line)
		return nil, nil
	}

	prev := m.trigger.State()
	c, sealed := m.trigger.Feed(sample)
	if prev == trigger.Idle && m.trigger.State() == trigger.Capturing {
		debug.DebugLog.Printf("capture %v started at %v (threshold %v)", m.trigger.Session().ID, sample, m.config.Threshold)
	}
	if !sealed {
		return nil, nil
	}

	m.counters.Captures.Add(1)
	debug.DebugLog.Printf("capture %v finished with %d samples", c.ID, len(c.Samples))

	f, err := m.Decode(c)
	if err != nil {
		m.counters.Errors.Add(1)
		return nil, err
	}

	m.counters.Frames.Add(1)
	return []Frame{f}, nil
}

// Decode binarizes a sealed capture, recovers its clock and decodes the manchester bits.
func (m *Manchester) Decode(c *trigger.Capture) (Frame, error) {
	levels := signal.BinarizeAll(c.Samples, m.config.Threshold)

	est, err := clock.Recover(levels)
	if err != nil {
		return Frame{}, fmt.Errorf("capture %v: %w", c.ID, err)
	}

	r := manchester.Decode(levels, est)
	stats := clock.RunStats(levels)

	f := Frame{
		ID:          c.ID,
		Protocol:    ProtocolManchester,
		Received:    time.Now(),
		Bits:        port.Format(r.Bits),
		BitCount:    len(r.Bits),
		SampleCount: len(c.Samples),
		BitPeriod:   est.Period,
		PulseStart:  est.PulseStart,
		PulseEnd:    est.PulseEnd,
		PulseWidth:  est.Duration(m.config.SampleRate),
		Windows:     r.Windows,
		Accepted:    r.Accepted,
		Skipped:     r.Skipped,
		Rejected:    r.Rejected,
		Stats:       &stats,
	}

	if a, err := assembler.Assemble(r.Bits); err != nil {
		f.Outcome = assembler.OutcomeNoData
	} else {
		f.Outcome = assembler.OutcomeText
		f.Text = a.Text
		f.Bytes = a.Bytes
	}

	debug.DebugLog.Printf("capture %v: period %d samples, %d bits, text %q", c.ID, est.Period, len(r.Bits), f.Text)
	return f, nil
}

// Reset discards a partial capture.
func (m *Manchester) Reset() {
	m.trigger.Abort()
}

// Counters returns the pipeline counters.
func (m *Manchester) Counters() *Counters {
	return &m.counters
}

// ParseSample parses a line holding one amplitude value.
// Empty lines and values which are not finite numbers are malformed.
func ParseSample(line []byte) (float64, bool) {
	s := strings.TrimSpace(string(line))
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
