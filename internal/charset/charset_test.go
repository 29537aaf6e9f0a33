package charset

import (
	"errors"
	"testing"

	"github.com/verte-zerg/paranoid/internal/model"
)

func TestValidateSortsAndDeduplicates(t *testing.T) {
	got, err := Validate("cbaabc!", 0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "!abc" {
		t.Fatalf("expected %q, got %q", "!abc", got)
	}
}

func TestValidateRejectsNonPrintable(t *testing.T) {
	for _, raw := range []string{"ab\tc", "abc\x7f", "caf\xc3\xa9", ""} {
		if _, err := Validate(raw, 0); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %q, got %v", raw, err)
		}
	}
}

func TestValidateCapacity(t *testing.T) {
	if _, err := Validate("abcd", 3); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if got, err := Validate("abcd", 4); err != nil || got != "abcd" {
		t.Fatalf("expected abcd to fit capacity 4, got %q, %v", got, err)
	}
}

func TestValidateAcceptsSpace(t *testing.T) {
	got, err := Validate("b a", 0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != " ab" {
		t.Fatalf("expected space to sort first, got %q", got)
	}
}

func TestFullPresetIsPrintableNonSpace(t *testing.T) {
	full, ok := Preset("full")
	if !ok {
		t.Fatalf("missing full preset")
	}
	if len(full) != 94 {
		t.Fatalf("expected 94 symbols, got %d", len(full))
	}
	normalized, err := Validate(full, 0)
	if err != nil {
		t.Fatalf("validate full: %v", err)
	}
	if len(normalized) != 94 {
		t.Fatalf("expected no duplicates in full preset")
	}
}

func TestCompose(t *testing.T) {
	c := Compose([]byte("aB3$ xY"))
	want := model.Composition{Lowercase: 2, Uppercase: 2, Digits: 1, Symbols: 2}
	if c != want {
		t.Fatalf("expected %+v, got %+v", want, c)
	}
}

func TestFeasible(t *testing.T) {
	if Feasible("abc", 8, model.Requirements{MinDigits: 1}) {
		t.Fatalf("digits are not available in abc")
	}
	if Feasible("abc123", 2, model.Requirements{MinLowercase: 2, MinDigits: 1}) {
		t.Fatalf("minimums exceed length")
	}
	if !Feasible("abc123", 3, model.Requirements{MinLowercase: 2, MinDigits: 1}) {
		t.Fatalf("expected feasible requirements")
	}
}
