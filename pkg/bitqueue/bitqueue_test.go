package bitqueue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"pulsedec/pkg/port"
)

func TestQueue(t *testing.T) {
	var q Queue
	assert.Equal(t, 0, q.Len())

	q.Push(port.ParseLevels("10110")...)
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, port.High, q.At(0))
	assert.Equal(t, port.Low, q.At(4))
	assert.Equal(t, "101", port.Format(q.Peek(3)))
	assert.Equal(t, 5, q.Len(), "peek must not consume")

	assert.Equal(t, "10", port.Format(q.Take(2)))
	assert.Equal(t, "110", q.String())

	assert.Equal(t, 3, q.Discard(10))
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Take(1))
	assert.Panics(t, func() { q.At(0) })
}

func TestTrimKeepsNewest(t *testing.T) {
	var q Queue
	q.Push(port.ParseLevels(strings.Repeat("0", 4000) + strings.Repeat("1", 4000))...)

	assert.Equal(t, 0, q.Trim(8000, 4000), "a queue at the limit is not trimmed")

	q.Push(port.Low)
	assert.Equal(t, 4001, q.Trim(8000, 4000))
	assert.Equal(t, 4000, q.Len())
	assert.Equal(t, strings.Repeat("1", 3999)+"0", q.String())
}

func levels(v []int) []port.Level {
	l := make([]port.Level, len(v))
	for i, b := range v {
		l[i] = port.Level(b)
	}
	return l
}

func TestQueueModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var q Queue
		var model []port.Level

		for i := rapid.IntRange(0, 50).Draw(t, "ops"); i > 0; i-- {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				bits := levels(rapid.SliceOfN(rapid.IntRange(0, 1), 0, 3000).Draw(t, "bits"))
				q.Push(bits...)
				model = append(model, bits...)
			case 1:
				n := rapid.IntRange(0, 3000).Draw(t, "n")
				got := q.Take(n)
				if n > len(model) {
					n = len(model)
				}
				if port.Format(got) != port.Format(model[:n]) {
					t.Fatalf("take %d: %s != %s", n, port.Format(got), port.Format(model[:n]))
				}
				model = model[n:]
			case 2:
				q.Trim(4000, 2000)
				if len(model) > 4000 {
					model = model[len(model)-2000:]
				}
			}

			if q.String() != port.Format(model) {
				t.Fatalf("queue %d bits differs from model %d bits", q.Len(), len(model))
			}
		}
	})
}
