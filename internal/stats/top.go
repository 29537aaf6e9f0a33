package stats

import (
	"math"
	"sort"
)

// Deviation is one symbol's contribution to the chi-squared statistic.
type Deviation struct {
	Symbol   byte
	Observed int
	Expected float64
	Term     float64
}

// TopDeviations returns the n symbols contributing most to the chi-squared
// statistic, largest first.
func TopDeviations(res ChiSquaredResult, n int) []Deviation {
	if n <= 0 || len(res.Frequencies) == 0 {
		return nil
	}
	total := 0
	for _, count := range res.Frequencies {
		total += count
	}
	expected := float64(total) / float64(len(res.Frequencies))
	items := make([]Deviation, 0, len(res.Frequencies))
	for sym, count := range res.Frequencies {
		term := 0.0
		if expected > 0 {
			term = math.Pow(float64(count)-expected, 2) / expected
		}
		items = append(items, Deviation{Symbol: sym, Observed: count, Expected: expected, Term: term})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Term == items[j].Term {
			return items[i].Symbol < items[j].Symbol
		}
		return items[i].Term > items[j].Term
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
