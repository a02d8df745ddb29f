// Package assembler groups decoded bits into bytes and maps them to text.
package assembler

import (
	"errors"
	"strings"

	"pulsedec/pkg/port"
)

const (
	// Placeholder replaces every byte outside the printable ASCII range.
	Placeholder = '?'

	// printable ASCII range
	minPrintable = 32
	maxPrintable = 126
)

// ErrNoData is returned when there are no bits to assemble.
var ErrNoData = errors.New("no bits to assemble")

// Outcome classifies the text of a decoded frame.
type Outcome string

const (
	// OutcomeText is a frame with printable content.
	OutcomeText Outcome = "text"
	// OutcomeBlank is a frame whose text is empty after stripping white space.
	OutcomeBlank Outcome = "blank"
	// OutcomeUndecodable is a frame containing bytes outside the printable range.
	OutcomeUndecodable Outcome = "undecodable"
	// OutcomeNoData is a capture without any decoded bit.
	OutcomeNoData Outcome = "nodata"
)

// Result contains the assembled bytes and their text representation.
type Result struct {
	Bytes []byte
	Text  string
	// Padding is the count of zero bits appended to complete the last byte.
	Padding int
}

// Assemble pads bits with zeros to a multiple of 8, groups them MSB first into
// bytes and maps each byte to its character or to Placeholder.
func Assemble(bits []port.Level) (Result, error) {
	if len(bits) == 0 {
		return Result{}, ErrNoData
	}

	r := Result{
		Bytes:   Pack(bits),
		Padding: (8 - len(bits)%8) % 8,
	}
	r.Text = Text(r.Bytes)
	return r, nil
}

// Pack groups bits MSB first into bytes, the unused low bits of the last byte are 0.
func Pack(bits []port.Level) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		out[i>>3] |= byte(b&1) << uint(7-i%8)
	}
	return out
}

// Printable reports whether v is in the printable ASCII range.
func Printable(v byte) bool {
	return v >= minPrintable && v <= maxPrintable
}

// Text maps each byte to a character, bytes outside the printable range become Placeholder.
func Text(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		if Printable(v) {
			sb.WriteByte(v)
		} else {
			sb.WriteByte(Placeholder)
		}
	}
	return sb.String()
}

// Classify returns OutcomeUndecodable if any byte is outside the printable range,
// OutcomeBlank if the text is empty after stripping white space and OutcomeText otherwise.
func Classify(b []byte) Outcome {
	for _, v := range b {
		if !Printable(v) {
			return OutcomeUndecodable
		}
	}
	if strings.TrimSpace(string(b)) == "" {
		return OutcomeBlank
	}
	return OutcomeText
}
