package pattern

import "testing"

func TestScan(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		want int
	}{
		{"empty", "", 0},
		{"short", "aa", 0},
		{"clean", "x9Kq2vLm", 0},
		{"triple", "aaab", 1},
		{"quad counts two windows", "aaaa", 2},
		{"ascending", "xabc", 1},
		{"descending ignored", "cba", 0},
		// "12345" is a walk plus three ascending windows.
		{"digits walk", "12345", 4},
		{"walk case insensitive", "QwErT", 1},
		{"symbol walk", "!@#$%", 1},
		{"walk needs full fragment", "qwer", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Scan([]byte(tc.pw)); got != tc.want {
				t.Fatalf("Scan(%q) = %d, want %d", tc.pw, got, tc.want)
			}
		})
	}
}

func TestFindReportsOffsets(t *testing.T) {
	issues := Find([]byte("zzqwertyyy"))
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
	if issues[0].Kind != Repeat || issues[0].Offset != 7 {
		t.Fatalf("unexpected first issue: %+v", issues[0])
	}
	if issues[1].Kind != Walk || issues[1].Offset != 2 || issues[1].Length != 5 {
		t.Fatalf("unexpected second issue: %+v", issues[1])
	}
	if issues[1].Kind.String() != "keyboard-walk" {
		t.Fatalf("unexpected kind name %q", issues[1].Kind)
	}
}
