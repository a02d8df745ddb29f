package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"pulsedec/pkg/port"
)

func TestBinarizeAtThreshold(t *testing.T) {
	assert.Equal(t, port.Low, Binarize(4000, 4000), "equal to threshold must be low")
	assert.Equal(t, port.High, Binarize(4000.001, 4000))
	assert.Equal(t, port.Low, Binarize(3999.999, 4000))
	assert.Equal(t, port.Low, Binarize(-1, 0))
}

func TestBinarizeStrictInequality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.Float64Range(-1e6, 1e6).Draw(t, "sample")
		th := rapid.Float64Range(-1e6, 1e6).Draw(t, "threshold")

		got := Binarize(s, th)
		if (got == port.High) != (s > th) {
			t.Fatalf("Binarize(%v, %v) = %v", s, th, got)
		}
	})
}

func TestBinarizeAll(t *testing.T) {
	got := BinarizeAll([]float64{1000, 5000, 4000, 4001, 0}, 4000)
	assert.Equal(t, "01010", port.Format(got))
	assert.Empty(t, BinarizeAll(nil, 1))
}
