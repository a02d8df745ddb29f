// Package trigger bounds a capture episode: it arms when the signal crosses the
// amplitude threshold and seals the capture after a run of samples below it.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// Idle waits for the signal to cross the threshold.
	Idle State = iota
	// Capturing appends every sample to the current session.
	Capturing
)

// State represents the state of the trigger controller.
type State int

func (s State) String() string {
	if s == Capturing {
		return "capturing"
	}
	return "idle"
}

// ErrInvalidRunLimit is returned by New for a run limit below 1.
var ErrInvalidRunLimit = errors.New("run limit must be at least 1")

// Capture is a sealed capture buffer of one trigger episode.
type Capture struct {
	ID      uuid.UUID
	Started time.Time
	Samples []float64
}

// Session is the capture in progress.
type Session struct {
	Capture
	// below is the count of consecutive samples below the threshold.
	below int
}

// Below returns the current run of samples below the threshold.
func (s *Session) Below() int {
	return s.below
}

// Controller contains the trigger state machine.
type Controller struct {
	threshold float64
	runLimit  int
	state     State
	session   *Session
}

// New returns an idle Controller.
func New(threshold float64, runLimit int) (*Controller, error) {
	if runLimit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRunLimit, runLimit)
	}

	return &Controller{threshold: threshold, runLimit: runLimit, state: Idle}, nil
}

// Feed processes one sample. It returns the sealed capture and true when the
// run of samples below the threshold reaches the run limit.
func (c *Controller) Feed(sample float64) (*Capture, bool) {
	switch c.state {
	case Idle:
		if sample < c.threshold {
			return nil, false
		}

		c.session = &Session{Capture: Capture{
			ID:      uuid.New(),
			Started: time.Now(),
			Samples: []float64{sample},
		}}
		c.state = Capturing

	case Capturing:
		s := c.session
		s.Samples = append(s.Samples, sample)

		if sample < c.threshold {
			s.below++
		} else {
			s.below = 0
		}

		if s.below >= c.runLimit {
			capture := s.Capture
			c.session = nil
			c.state = Idle
			return &capture, true
		}
	}

	return nil, false
}

// Abort discards the capture in progress and returns to Idle.
func (c *Controller) Abort() {
	c.session = nil
	c.state = Idle
}

// State returns the current state (Idle or Capturing).
func (c *Controller) State() State {
	return c.state
}

// Session returns the capture in progress or nil if the controller is idle.
func (c *Controller) Session() *Session {
	return c.session
}
