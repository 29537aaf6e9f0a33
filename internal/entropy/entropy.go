// Package entropy computes strength and uniqueness figures for a charset of
// size N and password length L. Everything that can overflow a float64 is
// kept in log space until the final exponentiation.
package entropy

import "math"

// Strength tier thresholds in bits.
const (
	TierMemorized   = 30
	TierHighValue   = 80
	TierCryptoEquiv = 128
	TierPostQuantum = 256
)

// DefaultGuessRate is the adversary rate used for BruteForceYears.
const DefaultGuessRate = 1e12

var secondsPerYear = 365.25 * 24 * 3600

// CrackRates are the guess rates reported in the crack-time table.
var CrackRates = []float64{1e9, 1e10, 1e12}

// Proof holds the entropy and brute-force figures.
type Proof struct {
	BitsPerChar      float64
	TotalEntropy     float64
	Log10SearchSpace float64
	BruteForceYears  float64
	Memorized        bool
	HighValue        bool
	CryptoEquiv      bool
	PostQuantum      bool
}

// NewProof computes the proof for n symbols and length l.
func NewProof(n, l int) Proof {
	if n <= 0 || l <= 0 {
		return Proof{}
	}
	bits := math.Log2(float64(n))
	total := float64(l) * bits
	log10S := float64(l) * math.Log10(float64(n))
	return Proof{
		BitsPerChar:      bits,
		TotalEntropy:     total,
		Log10SearchSpace: log10S,
		BruteForceYears:  YearsAt(log10S, DefaultGuessRate),
		Memorized:        total >= TierMemorized,
		HighValue:        total >= TierHighValue,
		CryptoEquiv:      total >= TierCryptoEquiv,
		PostQuantum:      total >= TierPostQuantum,
	}
}

// YearsAt returns the expected years to find a password (half the search
// space) at rate guesses per second.
func YearsAt(log10S, rate float64) float64 {
	return math.Pow(10, log10S-math.Log10(2)-math.Log10(rate)-math.Log10(secondsPerYear))
}

// CrackTime is one row of the crack-time table.
type CrackTime struct {
	Rate  float64
	Years float64
}

// CrackTimes evaluates YearsAt for every entry in CrackRates.
func CrackTimes(log10S float64) []CrackTime {
	out := make([]CrackTime, len(CrackRates))
	for i, rate := range CrackRates {
		out[i] = CrackTime{Rate: rate, Years: YearsAt(log10S, rate)}
	}
	return out
}

// Uniqueness holds birthday-bound figures for a batch.
type Uniqueness struct {
	CollisionProbability float64
	PasswordsFor50Pct    float64
	PasswordsFor1PPB     float64
}

// NewUniqueness computes birthday-bound figures for k passwords drawn from
// n symbols of length l.
func NewUniqueness(n, l, k int) Uniqueness {
	if n <= 0 || l <= 0 {
		return Uniqueness{}
	}
	lnS := float64(l) * math.Log(float64(n))
	u := Uniqueness{
		PasswordsFor50Pct: math.Exp(0.5 * (lnS + math.Ln2 + math.Log(math.Ln2))),
		PasswordsFor1PPB:  math.Exp(0.5 * (lnS + math.Ln2 - 9*math.Ln10)),
	}
	if k > 0 {
		u.CollisionProbability = math.Min(1, math.Exp(2*math.Log(float64(k))-math.Ln2-lnS))
	}
	return u
}
