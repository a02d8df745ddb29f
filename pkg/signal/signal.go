// Package signal converts amplitude samples to logic levels.
package signal

import "pulsedec/pkg/port"

// Binarize returns High if the sample is strictly above the threshold, otherwise Low.
// A NaN sample is a precondition violation and yields Low.
func Binarize(sample, threshold float64) port.Level {
	if sample > threshold {
		return port.High
	}
	return port.Low
}

// BinarizeAll binarizes every sample in arrival order.
func BinarizeAll(samples []float64, threshold float64) []port.Level {
	levels := make([]port.Level, len(samples))
	for i, s := range samples {
		levels[i] = Binarize(s, threshold)
	}
	return levels
}
