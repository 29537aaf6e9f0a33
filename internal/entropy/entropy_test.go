package entropy

import (
	"math"
	"testing"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewProofTotals(t *testing.T) {
	for _, n := range []int{1, 2, 10, 26, 62, 94, 128} {
		for _, l := range []int{1, 8, 16, 32, 256} {
			p := NewProof(n, l)
			if !near(p.TotalEntropy, float64(l)*math.Log2(float64(n)), 1e-9) {
				t.Fatalf("n=%d l=%d: total %f", n, l, p.TotalEntropy)
			}
		}
	}
}

func TestNewProofHex64(t *testing.T) {
	p := NewProof(16, 64)
	if p.TotalEntropy != 256 {
		t.Fatalf("expected 256 bits, got %f", p.TotalEntropy)
	}
	if !p.Memorized || !p.HighValue || !p.CryptoEquiv || !p.PostQuantum {
		t.Fatalf("expected every tier to pass: %+v", p)
	}
}

func TestNewProofTiers(t *testing.T) {
	// 10 lowercase symbols: 47 bits.
	p := NewProof(26, 10)
	if !p.Memorized || p.HighValue {
		t.Fatalf("unexpected tiers for 47 bits: %+v", p)
	}
}

func TestBruteForceYearsFinite(t *testing.T) {
	// 94^32 is about 10^63.
	p := NewProof(94, 32)
	if !near(p.Log10SearchSpace, 32*math.Log10(94), 1e-9) {
		t.Fatalf("unexpected log10 search space %f", p.Log10SearchSpace)
	}
	if math.IsInf(p.BruteForceYears, 0) || math.IsNaN(p.BruteForceYears) {
		t.Fatalf("brute force years not finite: %g", p.BruteForceYears)
	}
	want := p.Log10SearchSpace - math.Log10(2) - 12 - math.Log10(365.25*24*3600)
	if !near(math.Log10(p.BruteForceYears), want, 1e-9) {
		t.Fatalf("expected 10^%f years, got %g", want, p.BruteForceYears)
	}
}

func TestCrackTimesOrdered(t *testing.T) {
	rows := CrackTimes(20)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !(rows[0].Years > rows[1].Years && rows[1].Years > rows[2].Years) {
		t.Fatalf("faster rates must take less time: %+v", rows)
	}
	if !near(rows[0].Years/rows[2].Years, 1000, 1e-6) {
		t.Fatalf("expected 1e9 to be 1000x slower than 1e12, got %g", rows[0].Years/rows[2].Years)
	}
}

func TestNewProofDegenerate(t *testing.T) {
	if p := NewProof(0, 10); p != (Proof{}) {
		t.Fatalf("expected zero proof, got %+v", p)
	}
}

func TestNewUniqueness(t *testing.T) {
	u := NewUniqueness(16, 64, 500)
	if u.CollisionProbability < 0 || u.CollisionProbability > 1e-70 {
		t.Fatalf("expected negligible collision probability, got %g", u.CollisionProbability)
	}

	small := NewUniqueness(2, 4, 100)
	if small.CollisionProbability != 1 {
		t.Fatalf("expected clamp at 1, got %g", small.CollisionProbability)
	}

	// S = 10^6: k50 = sqrt(2 ln2 * 10^6) ~ 1177.4.
	d := NewUniqueness(10, 6, 0)
	if !near(d.PasswordsFor50Pct, math.Sqrt(2*math.Ln2*1e6), 1e-6) {
		t.Fatalf("unexpected 50%% threshold %f", d.PasswordsFor50Pct)
	}
	if !near(d.PasswordsFor1PPB, math.Sqrt(2e-9*1e6), 1e-9) {
		t.Fatalf("unexpected 1ppb threshold %f", d.PasswordsFor1PPB)
	}
	if d.CollisionProbability != 0 {
		t.Fatalf("expected 0 for empty batch, got %g", d.CollisionProbability)
	}
}
