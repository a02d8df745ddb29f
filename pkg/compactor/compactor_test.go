package compactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"pulsedec/pkg/port"
)

func levels(s string) []port.Level { return port.ParseLevels(s) }

func TestCompactMajority(t *testing.T) {
	c := Config{SamplesPerBit: 4}
	got := Compact(levels("1110"+"0001"+"1111"+"0000"+"11"), c)
	assert.Equal(t, "1010", port.Format(got), "trailing partial block must be dropped")
}

func TestCompactTieBreakIsLow(t *testing.T) {
	assert.Equal(t, port.Low, TieBreak)

	got := Compact(levels("1100"+"0011"+"1010"), Config{SamplesPerBit: 4})
	assert.Equal(t, "000", port.Format(got))

	got = Compact(levels("10"+"01"), Config{SamplesPerBit: 2, Invert: true})
	assert.Equal(t, "11", port.Format(got), "inversion is applied after the tie break")
}

func TestCompactCorrections(t *testing.T) {
	raw := levels("111" + "000" + "110" + "001")

	assert.Equal(t, "1010", port.Format(Compact(raw, Config{SamplesPerBit: 3})))
	assert.Equal(t, "0101", port.Format(Compact(raw, Config{SamplesPerBit: 3, Invert: true})))
	assert.Equal(t, "10", port.Format(Compact(raw, Config{SamplesPerBit: 3, Shift: 2})))
	assert.Equal(t, "01", port.Format(Compact(raw, Config{SamplesPerBit: 3, Invert: true, Shift: 2})))
	assert.Empty(t, Compact(levels("11"), Config{SamplesPerBit: 4, Shift: 3}))
}

func TestCompactIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[01]{0,200}`).Draw(t, "bits")
		got := Compact(levels(s), Config{SamplesPerBit: 1})
		if port.Format(got) != s {
			t.Fatalf("Compact(%q) = %q", s, port.Format(got))
		}
	})
}

func TestCompactInvalidConfig(t *testing.T) {
	raw := levels("11110000")
	assert.Empty(t, Compact(raw, Config{}))
	assert.Empty(t, Compact(raw, Config{SamplesPerBit: -2}))
	assert.Empty(t, Compact(raw, Config{SamplesPerBit: 4, Shift: 4}))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Config{SamplesPerBit: 4, Shift: 3}.Validate())
	assert.NoError(t, Config{SamplesPerBit: 1}.Validate())
	assert.ErrorIs(t, Config{SamplesPerBit: 0}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{SamplesPerBit: 4, Shift: 4}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{SamplesPerBit: 4, Shift: -1}.Validate(), ErrInvalidConfig)

	_, err := NewStream(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStreamMatchesBatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "n")
		c := Config{
			SamplesPerBit: n,
			Invert:        rapid.Bool().Draw(t, "invert"),
			Shift:         rapid.IntRange(0, n-1).Draw(t, "shift"),
		}
		raw := levels(rapid.StringMatching(`[01]{0,300}`).Draw(t, "raw"))
		cuts := rapid.SliceOfN(rapid.IntRange(0, len(raw)), 0, 10).Draw(t, "cuts")

		s, err := NewStream(c)
		require.NoError(t, err)

		var got []port.Level
		prev := 0
		for _, cut := range cuts {
			if cut < prev {
				continue
			}
			got = append(got, s.Write(raw[prev:cut])...)
			prev = cut
		}
		got = append(got, s.Write(raw[prev:])...)

		want := Compact(append([]port.Level(nil), raw...), c)
		if port.Format(got) != port.Format(want) {
			t.Fatalf("stream %q != batch %q", port.Format(got), port.Format(want))
		}
		if s.Pending() != len(raw)%n {
			t.Fatalf("pending %d, want %d", s.Pending(), len(raw)%n)
		}
	})
}

func TestStreamReset(t *testing.T) {
	s, err := NewStream(Config{SamplesPerBit: 2, Shift: 1})
	require.NoError(t, err)

	assert.Equal(t, "1", port.Format(s.Write(levels("00111"))))
	assert.Equal(t, 1, s.Pending())

	s.Reset()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, "0", port.Format(s.Write(levels("1100"))), "shift is re-armed after reset")
}
