// Package clock estimates the bit period of a capture from its first high pulse.
//
// The first transmitted symbol calibrates a link whose absolute clock is unknown
// to the receiver, so the estimate is only as accurate as that pulse.
package clock

import (
	"errors"
	"time"

	"pulsedec/pkg/port"
)

// ErrNoPulseDetected is returned when the levels hold no high pulse followed by a falling edge.
var ErrNoPulseDetected = errors.New("no complete high pulse detected")

// Estimate contains the recovered clock of one capture.
type Estimate struct {
	// PulseStart is the index of the first high level.
	PulseStart int
	// PulseEnd is the index of the first high to low transition after PulseStart.
	PulseEnd int
	// Period is the estimated bit period T in samples.
	Period int
	// StartRef is the first sample of the first decoding window (PulseEnd + T).
	StartRef int
	// Window is the width of a decoding window (2T).
	Window int
}

// Recover measures the first complete high pulse of levels.
func Recover(levels []port.Level) (Estimate, error) {
	start := -1
	for i, l := range levels {
		if l == port.High {
			start = i
			break
		}
	}
	if start < 0 {
		return Estimate{}, ErrNoPulseDetected
	}

	end := -1
	for j := start + 1; j < len(levels); j++ {
		if levels[j-1] == port.High && levels[j] == port.Low {
			end = j
			break
		}
	}
	if end < 0 {
		return Estimate{}, ErrNoPulseDetected
	}

	t := end - start
	return Estimate{
		PulseStart: start,
		PulseEnd:   end,
		Period:     t,
		StartRef:   end + t,
		Window:     2 * t,
	}, nil
}

// Duration converts the pulse width to a time duration for a sampling rate in Hz.
// It is used for reporting only and returns 0 if the rate is unknown.
func (e Estimate) Duration(sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(e.Period) * float64(time.Second) / sampleRate)
}
