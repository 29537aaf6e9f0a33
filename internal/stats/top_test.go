package stats

import "testing"

func TestTopDeviations(t *testing.T) {
	res := ChiSquaredResult{Frequencies: map[byte]int{'a': 10, 'b': 40, 'c': 25, 'd': 25}}
	top := TopDeviations(res, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 deviations, got %d", len(top))
	}
	// a and b deviate by 15 each; ties break by symbol.
	if top[0].Symbol != 'a' || top[1].Symbol != 'b' {
		t.Fatalf("unexpected order: %q, %q", top[0].Symbol, top[1].Symbol)
	}
	if top[0].Term != 9 {
		t.Fatalf("expected term 9, got %f", top[0].Term)
	}
}
