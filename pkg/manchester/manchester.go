// Package manchester is a software decoder for manchester code sampled at a fixed rate.
// https://en.wikipedia.org/wiki/Manchester_code
//
// Each bit occupies a window of two bit periods (2T) with the data transition in
// the middle of the window:
//
//	falling edge (high to low) ... logical 1
//	rising edge (low to high)  ... logical 0
//
// This polarity must match the transmitter.
package manchester

import (
	"pulsedec/pkg/clock"
	"pulsedec/pkg/port"
)

// GuardFraction is the part of a window on each side in which an edge is rejected.
// An edge exactly GuardFraction*window away from a boundary is accepted.
const GuardFraction = 0.2

// Result contains the decoded bits and the decision of each window.
type Result struct {
	// Bits are the decoded bits in window order.
	Bits []port.Level
	// Windows is the count of analysed windows.
	Windows int
	// Accepted is the count of windows which contributed a bit.
	Accepted int
	// Skipped is the count of windows without any edge.
	Skipped int
	// Rejected is the count of windows whose most central edge is within the guard margin.
	Rejected int
	// Centres holds the index of every accepted edge.
	Centres []int
}

// Edges returns the transitions of levels at indices greater than from.
func Edges(levels []port.Level, from int) []port.Edge {
	if from < 0 {
		from = 0
	}

	var edges []port.Edge
	for i := from + 1; i < len(levels); i++ {
		switch {
		case levels[i-1] == port.Low && levels[i] == port.High:
			edges = append(edges, port.Edge{Index: i, Type: port.RisingEdge})
		case levels[i-1] == port.High && levels[i] == port.Low:
			edges = append(edges, port.Edge{Index: i, Type: port.FallingEdge})
		}
	}
	return edges
}

// Decode scans the windows [k, k+2T) starting at est.StartRef until a window
// would exceed levels. Per window the edge closest to the middle is taken (the
// earlier one on a tie), windows without an edge or with a central edge inside
// the guard margin contribute no bit.
func Decode(levels []port.Level, est clock.Estimate) Result {
	var r Result
	if est.Window <= 0 {
		return r
	}

	edges := Edges(levels, est.StartRef)
	margin := GuardFraction * float64(est.Window)
	next := 0

	for k := est.StartRef; k+est.Window <= len(levels); k += est.Window {
		end := k + est.Window
		centre := float64(k+end) / 2
		r.Windows++

		// edges are sorted, skip everything up to the window start
		for next < len(edges) && edges[next].Index <= k {
			next++
		}

		best, found := port.Edge{}, false
		for i := next; i < len(edges) && edges[i].Index < end; i++ {
			if !found || abs(float64(edges[i].Index)-centre) < abs(float64(best.Index)-centre) {
				best, found = edges[i], true
			}
		}

		if !found {
			r.Skipped++
			continue
		}

		if float64(best.Index-k) < margin || float64(end-best.Index) < margin {
			r.Rejected++
			continue
		}

		r.Accepted++
		r.Centres = append(r.Centres, best.Index)
		if best.Type == port.FallingEdge {
			r.Bits = append(r.Bits, port.High)
		} else {
			r.Bits = append(r.Bits, port.Low)
		}
	}

	return r
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
