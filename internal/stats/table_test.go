package stats

import (
	"bytes"
	"testing"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Test", "Value", "Pass"}
	rows := [][]string{
		{"chi2", "91.20", "yes"},
		{"serial", "-0.0031", "no"},
	}
	rightAlign := map[int]bool{1: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "Test     Value Pass" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "------ ------- ----" {
		t.Fatalf("unexpected rule line: %q", lines[1])
	}
	if lines[2] != "chi2     91.20 yes" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
	if lines[3] != "serial -0.0031 no" {
		t.Fatalf("unexpected row line: %q", lines[3])
	}
}

func TestTableRenderIncludesTitle(t *testing.T) {
	var buf bytes.Buffer
	tbl := table{title: "Uniformity", headers: []string{"A"}}
	tbl.add("1")
	if err := tbl.render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := buf.String(); got != "Uniformity\nA\n-\n1\n\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
