package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/paranoid/internal/model"
)

func TestBuiltinsThresholds(t *testing.T) {
	fs := Builtins()
	require.Len(t, fs, 6)

	want := []struct {
		name       string
		minLen     int
		minBits    float64
		mixed, dig bool
		sym        bool
	}{
		{"NIST SP 800-63B", 8, 30, false, false, false},
		{"PCI DSS 4.0", 12, 60, true, true, false},
		{"HIPAA", 8, 50, true, true, true},
		{"SOC 2", 8, 50, true, true, false},
		{"GDPR/ENISA", 10, 80, true, true, true},
		{"ISO 27001", 12, 90, true, true, true},
	}
	for i, w := range want {
		f := fs[i]
		assert.Equal(t, w.name, f.Name)
		assert.Equal(t, w.minLen, f.MinLength, f.Name)
		assert.Equal(t, w.minBits, f.MinEntropyBits, f.Name)
		assert.Equal(t, w.mixed, f.RequireMixedCase, f.Name)
		assert.Equal(t, w.dig, f.RequireDigits, f.Name)
		assert.Equal(t, w.sym, f.RequireSymbols, f.Name)
	}
}

func TestBuiltinsAreCopies(t *testing.T) {
	fs := Builtins()
	fs[0].MinLength = 1000
	again := Builtins()
	assert.Equal(t, 8, again[0].MinLength)

	nist, ok := Lookup("nist")
	require.True(t, ok)
	nist.MinEntropyBits = 0
	nist2, _ := Lookup("nist")
	assert.Equal(t, 30.0, nist2.MinEntropyBits)
}

func TestEvaluateLowercaseOnly(t *testing.T) {
	// lowercase, 16 symbols: ~75.2 bits, no digits, no upper case.
	res := &model.AuditResult{
		PasswordLength: 16,
		TotalEntropy:   75.21,
		Composition:    model.Composition{Lowercase: 16},
	}
	Evaluate(res)
	assert.True(t, res.CompliantNIST)
	assert.False(t, res.CompliantPCIDSS)
	assert.False(t, res.CompliantHIPAA)
	assert.False(t, res.CompliantSOC2)
	assert.False(t, res.CompliantGDPR)
	assert.False(t, res.CompliantISO27001)
}

func TestEvaluateFullCharset(t *testing.T) {
	res := &model.AuditResult{
		PasswordLength: 20,
		TotalEntropy:   131.1,
		Composition:    model.Composition{Lowercase: 6, Uppercase: 5, Digits: 4, Symbols: 5},
	}
	Evaluate(res)
	assert.True(t, res.CompliantNIST)
	assert.True(t, res.CompliantPCIDSS)
	assert.True(t, res.CompliantHIPAA)
	assert.True(t, res.CompliantSOC2)
	assert.True(t, res.CompliantGDPR)
	assert.True(t, res.CompliantISO27001)
}

func TestFailuresExplainEachMiss(t *testing.T) {
	iso, ok := Lookup("iso27001")
	require.True(t, ok)
	failures := iso.Failures(Subject{Length: 8, TotalEntropy: 40, Composition: model.Composition{Lowercase: 8}})
	assert.Len(t, failures, 5)
	assert.False(t, iso.Check(Subject{Length: 8}))
}

func TestParseFrameworks(t *testing.T) {
	data := []byte(`
frameworks:
  - name: Internal
    min-length: 24
    min-entropy-bits: 128
    require-symbols: true
  - id: legacy
    name: Legacy
    min-length: 6
`)
	fs, err := ParseFrameworks(data)
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "Internal", fs[0].ID)
	assert.Equal(t, 24, fs[0].MinLength)
	assert.True(t, fs[0].RequireSymbols)
	assert.Equal(t, "legacy", fs[1].ID)

	verdicts := CheckAll(fs, Subject{Length: 10, TotalEntropy: 65, Composition: model.Composition{Lowercase: 10}})
	require.Len(t, verdicts, 2)
	assert.False(t, verdicts[0].Compliant)
	assert.True(t, verdicts[1].Compliant)
	assert.Empty(t, verdicts[1].Failures)
}

func TestParseFrameworksRejectsInvalid(t *testing.T) {
	_, err := ParseFrameworks([]byte("frameworks:\n  - min-length: 3\n"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = ParseFrameworks([]byte("frameworks:\n  - name: a\n    min-length: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = ParseFrameworks([]byte("frameworks:\n  - name: a\n  - name: a\n"))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = ParseFrameworks([]byte("frameworks: [unterminated"))
	assert.Error(t, err)
}

func TestLoadFrameworks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frameworks:\n  - name: Team\n    min-length: 16\n"), 0o600))
	fs, err := LoadFrameworks(path)
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, 16, fs[0].MinLength)

	_, err = LoadFrameworks(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
