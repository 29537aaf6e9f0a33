package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/config"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", audit.ErrInvalidArgument), 2},
		{audit.ErrRequirementsImpossible, 3},
		{audit.ErrAttemptsExhausted, 4},
		{audit.ErrCSPRNGFailure, 1},
		{errors.New("other"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestDigestCommand(t *testing.T) {
	out, err := runRoot(t, "digest", "abc")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if strings.TrimSpace(out) != want {
		t.Fatalf("expected %s, got %q", want, out)
	}
}

func TestCharsetCommand(t *testing.T) {
	out, err := runRoot(t, "charset", "zyxxa")
	if err != nil {
		t.Fatalf("charset failed: %v", err)
	}
	if !strings.HasPrefix(out, "axyz\n") || !strings.Contains(out, "size 4") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := runRoot(t, "charset", "ab\tc"); !errors.Is(err, audit.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := runRoot(t, "schema")
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if !strings.HasPrefix(out, "schema version 1\n") || !strings.Contains(out, "run_id") {
		t.Fatalf("unexpected schema output %q", out)
	}
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.Generate.Charset != nil || cfg.Audit.BatchSize != nil {
		t.Fatalf("expected every template value to be commented out")
	}
}
