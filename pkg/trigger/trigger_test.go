package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, c *Controller, samples []float64) []*Capture {
	t.Helper()
	var captures []*Capture
	for _, s := range samples {
		if capture, ok := c.Feed(s); ok {
			captures = append(captures, capture)
		}
	}
	return captures
}

func TestNewRejectsRunLimit(t *testing.T) {
	_, err := New(4000, 0)
	assert.ErrorIs(t, err, ErrInvalidRunLimit)
}

func TestArmAndSeal(t *testing.T) {
	c, err := New(4000, 3)
	require.NoError(t, err)

	captures := feedAll(t, c, []float64{100, 3999, 4000, 5000, 100, 100, 100, 200})
	require.Len(t, captures, 1)

	assert.Equal(t, []float64{4000, 5000, 100, 100, 100}, captures[0].Samples,
		"capture starts with the arming sample and ends with the last sample of the run")
	assert.NotEmpty(t, captures[0].ID.String())
	assert.Equal(t, Idle, c.State())
	assert.Nil(t, c.Session())
}

func TestDipResetsRunCounter(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	captures := feedAll(t, c, []float64{20, 1, 1, 20, 1, 1, 20})
	assert.Empty(t, captures, "dips shorter than the run limit must not seal the capture")
	assert.Equal(t, Capturing, c.State())
	assert.Equal(t, 0, c.Session().Below())
	assert.Len(t, c.Session().Samples, 7)

	captures = feedAll(t, c, []float64{1, 1, 1})
	require.Len(t, captures, 1)
	assert.Len(t, captures[0].Samples, 10)
}

func TestConsecutiveEpisodes(t *testing.T) {
	c, err := New(10, 1)
	require.NoError(t, err)

	captures := feedAll(t, c, []float64{11, 12, 0, 0, 15, 0})
	require.Len(t, captures, 2)
	assert.Equal(t, []float64{11, 12, 0}, captures[0].Samples)
	assert.Equal(t, []float64{15, 0}, captures[1].Samples)
	assert.NotEqual(t, captures[0].ID, captures[1].ID)
}

func TestAbortDiscardsSession(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	feedAll(t, c, []float64{11, 12, 0})
	require.Equal(t, Capturing, c.State())

	c.Abort()
	assert.Equal(t, Idle, c.State())
	assert.Nil(t, c.Session())

	captures := feedAll(t, c, []float64{0, 0, 0})
	assert.Empty(t, captures, "an aborted session must never be sealed")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "capturing", Capturing.String())
}
