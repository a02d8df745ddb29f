// Package port holds the vocabulary shared by all decoding stages:
// logic levels and the edges between them.
package port

// Level is the logic level of a sample or a decoded bit.
type Level uint8

const (
	// Low indicates a logical 0.
	Low Level = 0
	// High indicates a logical 1.
	High Level = 1
)

// String returns "0" or "1".
func (l Level) String() string {
	if l == High {
		return "1"
	}
	return "0"
}

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// EdgeType indicates the direction of a change of the logic level.
type EdgeType int

const (
	_ EdgeType = iota
	// RisingEdge indicates a low to high transition.
	RisingEdge
	// FallingEdge indicates a high to low transition.
	FallingEdge
)

func (t EdgeType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "none"
	}
}

// Edge is the index of a level stream where the level differs from its predecessor.
type Edge struct {
	// Index is the position of the first sample after the transition.
	Index int
	// Type is the direction of the transition.
	Type EdgeType
}

// ParseLevel converts the characters '0' and '1' to a Level.
// ok is false for every other character.
func ParseLevel(c byte) (l Level, ok bool) {
	switch c {
	case '0':
		return Low, true
	case '1':
		return High, true
	}
	return Low, false
}

// ParseLevels converts a string of '0'/'1' characters, skipping every other character.
func ParseLevels(s string) []Level {
	levels := make([]Level, 0, len(s))
	for i := 0; i < len(s); i++ {
		if l, ok := ParseLevel(s[i]); ok {
			levels = append(levels, l)
		}
	}
	return levels
}

// Format renders levels as a string of '0'/'1' characters.
func Format(levels []Level) string {
	b := make([]byte, len(levels))
	for i, l := range levels {
		b[i] = '0' + byte(l)
	}
	return string(b)
}
