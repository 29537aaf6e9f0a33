// Package stats contains the statistical audit tests and their reporting.
package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/verte-zerg/paranoid/internal/charset"
)

const sparkChars = " .:-=+*#%@"

// Pass thresholds.
const (
	ChiPassPValue      = 0.01
	SerialPassAbsLimit = 0.05
)

// ErrBatchShape is returned when a batch cannot be split into passwords.
var ErrBatchShape = errors.New("batch length is not a multiple of password length")

// Hasher produces the fixed-size fingerprints used for collision detection.
type Hasher interface {
	Sum256(data []byte) [32]byte
}

// ChiSquaredResult holds the outcome of the uniformity test.
type ChiSquaredResult struct {
	Statistic   float64
	DF          int
	PValue      float64
	Frequencies map[byte]int
}

// Pass reports whether the p-value clears the threshold.
func (r ChiSquaredResult) Pass() bool {
	return r.PValue > ChiPassPValue
}

// ChiSquared tallies symbol frequencies across the concatenated batch and
// compares them against a uniform distribution over cs. Degrees of freedom
// are len(cs)-1.
func ChiSquared(batch []byte, cs string) ChiSquaredResult {
	n := len(cs)
	res := ChiSquaredResult{DF: n - 1, PValue: 1, Frequencies: make(map[byte]int, n)}
	if n == 0 {
		res.DF = 0
		return res
	}
	var freq [256]int
	for _, b := range batch {
		freq[b]++
	}
	for i := 0; i < n; i++ {
		res.Frequencies[cs[i]] = freq[cs[i]]
	}
	if len(batch) == 0 {
		return res
	}

	expected := float64(len(batch)) / float64(n)
	var chi2 float64
	for i := 0; i < n; i++ {
		diff := float64(freq[cs[i]]) - expected
		chi2 += diff * diff / expected
	}
	res.Statistic = chi2
	res.PValue = PValue(chi2, res.DF)
	return res
}

// PValue approximates the upper tail of the chi-squared distribution with
// the Wilson-Hilferty cube-root transform. df < 1 yields 1.
func PValue(chi2 float64, df int) float64 {
	if df < 1 {
		return 1
	}
	k := float64(df)
	z := math.Cbrt(chi2/k) - (1 - 2/(9*k))
	z /= math.Sqrt(2 / (9 * k))
	return 0.5 * erfc(z/math.Sqrt2)
}

// erfc is the Abramowitz-Stegun 7.1.26 approximation evaluated by Horner's rule.
func erfc(x float64) float64 {
	ax := math.Abs(x)
	t := 1 / (1 + 0.3275911*ax)
	poly := t * (0.254829592 + t*(-0.284496736+t*(1.421413741+t*(-1.453152027+t*1.061405429))))
	r := poly * math.Exp(-x*x)
	if x >= 0 {
		return r
	}
	return 2 - r
}

// SerialCorrelation returns the lag-1 autocorrelation of data. Constant data
// and inputs shorter than two bytes yield 0.
func SerialCorrelation(data []byte) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, b := range data {
		mean += float64(b)
	}
	mean /= float64(n)

	var num, den float64
	for i := 0; i < n-1; i++ {
		num += (float64(data[i]) - mean) * (float64(data[i+1]) - mean)
	}
	for _, b := range data {
		d := float64(b) - mean
		den += d * d
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// SerialPass reports whether r is within the independence threshold.
func SerialPass(r float64) bool {
	return math.Abs(r) < SerialPassAbsLimit
}

// CountCollisions fingerprints every password in the concatenated batch and
// counts passwords whose fingerprint matches an earlier one. The pairwise
// scan is quadratic, which is fine for batches of a few thousand.
func CountCollisions(h Hasher, passwords []byte, length int) (int, error) {
	if length <= 0 || len(passwords)%length != 0 {
		return 0, fmt.Errorf("%w: %d bytes, length %d", ErrBatchShape, len(passwords), length)
	}
	count := len(passwords) / length
	prints := make([][32]byte, count)
	defer func() {
		for i := range prints {
			prints[i] = [32]byte{}
		}
	}()
	for i := 0; i < count; i++ {
		prints[i] = h.Sum256(passwords[i*length : (i+1)*length])
	}

	dupes := 0
	for i := 1; i < count; i++ {
		for j := 0; j < i; j++ {
			if prints[i] == prints[j] {
				dupes++
				break
			}
		}
	}
	return dupes, nil
}

// RunsTest counts runs of identical character classes across data and the
// number expected if classes were independent.
func RunsTest(data []byte) (observed int, expected float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	var counts [4]int
	observed = 1
	prev := charset.Classify(data[0])
	counts[prev]++
	for _, b := range data[1:] {
		c := charset.Classify(b)
		counts[c]++
		if c != prev {
			observed++
		}
		prev = c
	}
	expected = 1
	for a := 0; a < len(counts); a++ {
		for b := a + 1; b < len(counts); b++ {
			expected += 2 * float64(counts[a]) * float64(counts[b]) / float64(n)
		}
	}
	return observed, expected
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
