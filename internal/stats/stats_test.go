package stats

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"math"
	"testing"
)

type sha256Hasher struct{}

func (sha256Hasher) Sum256(data []byte) [32]byte { return sha256.Sum256(data) }

func repeatPattern(cs string, total int) []byte {
	out := make([]byte, total)
	for i := range out {
		out[i] = cs[i%len(cs)]
	}
	return out
}

func TestChiSquaredPerfectUniform(t *testing.T) {
	res := ChiSquared(repeatPattern("abc", 3000), "abc")
	if math.Abs(res.Statistic) > 1e-9 {
		t.Fatalf("expected chi2 ~0, got %f", res.Statistic)
	}
	if res.DF != 2 {
		t.Fatalf("expected df 2, got %d", res.DF)
	}
	if res.PValue <= 0.5 {
		t.Fatalf("expected p > 0.5, got %f", res.PValue)
	}
	if !res.Pass() {
		t.Fatalf("expected uniform data to pass")
	}
}

func TestChiSquaredAllOneSymbol(t *testing.T) {
	batch := bytes.Repeat([]byte{'a'}, 3000)
	res := ChiSquared(batch, "abc")
	if res.Statistic != 6000 {
		t.Fatalf("expected chi2 = 6000, got %f", res.Statistic)
	}
	if res.Pass() {
		t.Fatalf("expected biased data to fail, p=%f", res.PValue)
	}
}

func TestChiSquaredDegreesOfFreedom(t *testing.T) {
	res := ChiSquared(repeatPattern("0123456789", 1000), "0123456789")
	if res.DF != 9 {
		t.Fatalf("expected df = N-1 = 9, got %d", res.DF)
	}
}

func TestChiSquaredSingleSymbol(t *testing.T) {
	res := ChiSquared([]byte("aaaa"), "a")
	if res.DF != 0 || res.PValue != 1 {
		t.Fatalf("expected df 0 and p 1, got df=%d p=%f", res.DF, res.PValue)
	}
}

func TestPValueMonotone(t *testing.T) {
	prev := 1.0
	for _, chi2 := range []float64{1, 5, 10, 20, 40, 80} {
		p := PValue(chi2, 9)
		if p > prev+1e-12 {
			t.Fatalf("p-value increased at chi2=%f", chi2)
		}
		if p < 0 || p > 1 {
			t.Fatalf("p-value %f out of range", p)
		}
		prev = p
	}
}

func TestErfcApproximation(t *testing.T) {
	for _, x := range []float64{-2, -0.5, 0, 0.5, 1, 2.5} {
		if diff := math.Abs(erfc(x) - math.Erfc(x)); diff > 1e-6 {
			t.Fatalf("erfc(%f) off by %g", x, diff)
		}
	}
}

func TestSerialCorrelation(t *testing.T) {
	if r := SerialCorrelation(bytes.Repeat([]byte{'x'}, 100)); r != 0 {
		t.Fatalf("expected 0 for constant data, got %f", r)
	}
	if r := SerialCorrelation([]byte{'x'}); r != 0 {
		t.Fatalf("expected 0 for short data, got %f", r)
	}
	if r := SerialCorrelation(repeatPattern("ab", 100)); r >= -0.9 {
		t.Fatalf("expected strong negative correlation, got %f", r)
	}
	ramp := make([]byte, 200)
	for i := range ramp {
		ramp[i] = byte(i)
	}
	if r := SerialCorrelation(ramp); r < -1 || r > 1 {
		t.Fatalf("correlation out of range: %f", r)
	}
}

func TestSerialPass(t *testing.T) {
	if !SerialPass(0.049) || SerialPass(-0.05) {
		t.Fatalf("unexpected serial threshold behaviour")
	}
}

func TestCountCollisions(t *testing.T) {
	cases := []struct {
		name  string
		batch string
		want  int
	}{
		{"distinct", "aaaabbbbccccddddeeee", 0},
		{"one repeat", "aaaabbbbaaaaddddeeee", 1},
		{"all same", "aaaaaaaaaaaaaaaaaaaa", 4},
	}
	for _, tc := range cases {
		got, err := CountCollisions(sha256Hasher{}, []byte(tc.batch), 4)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d duplicates, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCountCollisionsShape(t *testing.T) {
	if _, err := CountCollisions(sha256Hasher{}, []byte("abcde"), 2); !errors.Is(err, ErrBatchShape) {
		t.Fatalf("expected ErrBatchShape, got %v", err)
	}
}

func TestRunsTest(t *testing.T) {
	observed, expected := RunsTest([]byte("aA1!aA1!"))
	if observed != 8 {
		t.Fatalf("expected 8 runs, got %d", observed)
	}
	// 4 classes with 2 each over n=8: 1 + 6 pairs * 2*2*2/8 = 7.
	if math.Abs(expected-7) > 1e-9 {
		t.Fatalf("expected 7 runs, got %f", expected)
	}
	if observed, _ := RunsTest([]byte("aaaa")); observed != 1 {
		t.Fatalf("expected a single run, got %d", observed)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}
