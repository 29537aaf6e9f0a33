package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	minBarWidth         = 10
	barLabelWidth       = 14
	expectedMarker      = '|'
	barFill             = '#'
	colorHigh           = "\x1b[33m"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// PlotFrequencies renders one horizontal bar per charset symbol scaled to
// the largest count, with a marker at the expected count. Symbols whose
// chi-squared term exceeds highTerm are highlighted on colour terminals.
func PlotFrequencies(w io.Writer, res ChiSquaredResult, cs string, width int, highTerm float64) error {
	if len(cs) == 0 || len(res.Frequencies) == 0 {
		return nil
	}
	if width <= 0 {
		width = BarWidthFor(terminalWidth())
	}
	width = max(width, minBarWidth)

	total, peak := 0, 0
	for i := 0; i < len(cs); i++ {
		count := res.Frequencies[cs[i]]
		total += count
		peak = max(peak, count)
	}
	if peak == 0 {
		return nil
	}
	expected := float64(total) / float64(len(cs))
	marker := int(math.Round(expected / float64(peak) * float64(width-1)))
	useColor := shouldUseColor(w)

	if _, err := fmt.Fprintf(w, "Symbol frequencies (expected %.1f each, %c marks expected)\n", expected, expectedMarker); err != nil {
		return err
	}
	for i := 0; i < len(cs); i++ {
		sym := cs[i]
		count := res.Frequencies[sym]
		bar := makeBar(count, peak, width, marker)
		term := math.Pow(float64(count)-expected, 2) / expected
		if useColor && highTerm > 0 && term > highTerm {
			bar = colorHigh + bar + colorReset
		}
		label := fmt.Sprintf("%-4s %8d", symbolLabel(sym), count)
		if _, err := fmt.Fprintf(w, "%-*s %s\n", barLabelWidth, label, bar); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func makeBar(count, peak, width, marker int) string {
	filled := int(math.Round(float64(count) / float64(peak) * float64(width)))
	cells := make([]rune, width)
	for i := range cells {
		switch {
		case i < filled:
			cells[i] = barFill
		default:
			cells[i] = ' '
		}
	}
	if marker >= 0 && marker < width {
		cells[marker] = expectedMarker
	}
	return strings.TrimRight(string(cells), " ")
}

func symbolLabel(sym byte) string {
	if sym == ' ' {
		return "<sp>"
	}
	return string(sym)
}

// BarWidthFor computes a bar width that fits the total available width.
func BarWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	return max(totalWidth-barLabelWidth-1, minBarWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
