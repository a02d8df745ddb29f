package clock

import (
	"gonum.org/v1/gonum/stat"

	"pulsedec/pkg/port"
)

// Run is a sequence of equal levels.
type Run struct {
	Level  port.Level
	Start  int
	Length int
}

// Stats summarizes the run lengths of a level stream (in samples).
// A jitter free Manchester signal only has runs of T and 2T.
type Stats struct {
	HighRuns   int     `json:"highRuns"`
	HighMean   float64 `json:"highMean"`
	HighStdDev float64 `json:"highStdDev"`
	LowRuns    int     `json:"lowRuns"`
	LowMean    float64 `json:"lowMean"`
	LowStdDev  float64 `json:"lowStdDev"`
}

// Runs splits levels into runs of equal levels.
func Runs(levels []port.Level) []Run {
	var runs []Run
	for i, l := range levels {
		if i > 0 && l == levels[i-1] {
			runs[len(runs)-1].Length++
			continue
		}
		runs = append(runs, Run{Level: l, Start: i, Length: 1})
	}
	return runs
}

// RunStats returns mean and standard deviation of the inner high and low runs.
// The leading and trailing runs are cut by the capture window and are ignored.
func RunStats(levels []port.Level) Stats {
	runs := Runs(levels)
	if len(runs) < 3 {
		return Stats{}
	}

	var high, low []float64
	for _, r := range runs[1 : len(runs)-1] {
		if r.Level == port.High {
			high = append(high, float64(r.Length))
		} else {
			low = append(low, float64(r.Length))
		}
	}

	var s Stats
	s.HighRuns, s.LowRuns = len(high), len(low)
	if len(high) > 0 {
		s.HighMean, s.HighStdDev = meanStdDev(high)
	}
	if len(low) > 0 {
		s.LowMean, s.LowStdDev = meanStdDev(low)
	}
	return s
}

func meanStdDev(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}
