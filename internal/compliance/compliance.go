// Package compliance checks audit results against password policy frameworks.
package compliance

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/paranoid/internal/model"
)

// Framework is a named password policy. Values are copied on use, so the
// built-ins cannot be changed through a returned Framework.
type Framework struct {
	ID               string  `yaml:"id" json:"id"`
	Name             string  `yaml:"name" json:"name"`
	Description      string  `yaml:"description" json:"description"`
	MinLength        int     `yaml:"min-length" json:"min_length"`
	MinEntropyBits   float64 `yaml:"min-entropy-bits" json:"min_entropy_bits"`
	RequireMixedCase bool    `yaml:"require-mixed-case" json:"require_mixed_case"`
	RequireDigits    bool    `yaml:"require-digits" json:"require_digits"`
	RequireSymbols   bool    `yaml:"require-symbols" json:"require_symbols"`
}

var builtins = [...]Framework{
	{
		ID:             "nist",
		Name:           "NIST SP 800-63B",
		Description:    "US federal standard for digital identity (memorized secrets)",
		MinLength:      8,
		MinEntropyBits: 30,
	},
	{
		ID:               "pci-dss",
		Name:             "PCI DSS 4.0",
		Description:      "Payment card industry data security standard",
		MinLength:        12,
		MinEntropyBits:   60,
		RequireMixedCase: true,
		RequireDigits:    true,
	},
	{
		ID:               "hipaa",
		Name:             "HIPAA",
		Description:      "US health information privacy (HHS/HITRUST guidance)",
		MinLength:        8,
		MinEntropyBits:   50,
		RequireMixedCase: true,
		RequireDigits:    true,
		RequireSymbols:   true,
	},
	{
		ID:               "soc2",
		Name:             "SOC 2",
		Description:      "Service organization controls (AICPA Trust Services Criteria)",
		MinLength:        8,
		MinEntropyBits:   50,
		RequireMixedCase: true,
		RequireDigits:    true,
	},
	{
		ID:               "gdpr",
		Name:             "GDPR/ENISA",
		Description:      "EU data protection (ENISA technical guidelines)",
		MinLength:        10,
		MinEntropyBits:   80,
		RequireMixedCase: true,
		RequireDigits:    true,
		RequireSymbols:   true,
	},
	{
		ID:               "iso27001",
		Name:             "ISO 27001",
		Description:      "International information security management (Annex A.5.17)",
		MinLength:        12,
		MinEntropyBits:   90,
		RequireMixedCase: true,
		RequireDigits:    true,
		RequireSymbols:   true,
	},
}

// Builtins returns a copy of the six built-in frameworks in result order.
func Builtins() []Framework {
	out := make([]Framework, len(builtins))
	copy(out, builtins[:])
	return out
}

// Lookup returns the built-in framework with the given id.
func Lookup(id string) (Framework, bool) {
	for _, f := range builtins {
		if f.ID == id {
			return f, true
		}
	}
	return Framework{}, false
}

// Subject is what a framework is checked against.
type Subject struct {
	Length       int
	TotalEntropy float64
	Composition  model.Composition
}

// SubjectOf extracts the checked fields from an audit result.
func SubjectOf(res *model.AuditResult) Subject {
	return Subject{
		Length:       res.PasswordLength,
		TotalEntropy: res.TotalEntropy,
		Composition:  res.Composition,
	}
}

// Failures lists every requirement s misses. An empty slice means compliant.
func (f Framework) Failures(s Subject) []string {
	var out []string
	if s.Length < f.MinLength {
		out = append(out, fmt.Sprintf("length %d < %d", s.Length, f.MinLength))
	}
	if s.TotalEntropy < f.MinEntropyBits {
		out = append(out, fmt.Sprintf("entropy %.1f bits < %.1f", s.TotalEntropy, f.MinEntropyBits))
	}
	c := s.Composition
	if f.RequireMixedCase && (c.Lowercase == 0 || c.Uppercase == 0) {
		out = append(out, "needs upper and lower case")
	}
	if f.RequireDigits && c.Digits == 0 {
		out = append(out, "needs a digit")
	}
	if f.RequireSymbols && c.Symbols == 0 {
		out = append(out, "needs a symbol")
	}
	return out
}

// Check reports whether s satisfies every requirement of f.
func (f Framework) Check(s Subject) bool {
	return len(f.Failures(s)) == 0
}

// Evaluate fills the six built-in compliance flags of res.
func Evaluate(res *model.AuditResult) {
	s := SubjectOf(res)
	res.CompliantNIST = builtins[0].Check(s)
	res.CompliantPCIDSS = builtins[1].Check(s)
	res.CompliantHIPAA = builtins[2].Check(s)
	res.CompliantSOC2 = builtins[3].Check(s)
	res.CompliantGDPR = builtins[4].Check(s)
	res.CompliantISO27001 = builtins[5].Check(s)
}

// Verdict is the outcome of checking one framework.
type Verdict struct {
	Framework Framework `json:"framework"`
	Compliant bool      `json:"compliant"`
	Failures  []string  `json:"failures,omitempty"`
}

// CheckAll evaluates s against each framework in order.
func CheckAll(frameworks []Framework, s Subject) []Verdict {
	out := make([]Verdict, 0, len(frameworks))
	for _, f := range frameworks {
		failures := f.Failures(s)
		out = append(out, Verdict{Framework: f, Compliant: len(failures) == 0, Failures: failures})
	}
	return out
}

// PolicyFile is the YAML layout of a custom policy file.
type PolicyFile struct {
	Frameworks []Framework `yaml:"frameworks"`
}

// ErrInvalidPolicy is returned for policy files with unusable entries.
var ErrInvalidPolicy = errors.New("invalid policy")

// LoadFrameworks reads custom frameworks from a YAML file.
func LoadFrameworks(path string) ([]Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParseFrameworks(data)
}

// ParseFrameworks decodes and validates custom frameworks.
func ParseFrameworks(data []byte) ([]Framework, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	seen := map[string]bool{}
	for i, f := range file.Frameworks {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: framework %d has no name", ErrInvalidPolicy, i)
		}
		if f.MinLength < 0 || f.MinEntropyBits < 0 {
			return nil, fmt.Errorf("%w: %s has negative minimums", ErrInvalidPolicy, f.Name)
		}
		if f.ID == "" {
			file.Frameworks[i].ID = f.Name
		}
		id := file.Frameworks[i].ID
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate framework %q", ErrInvalidPolicy, id)
		}
		seen[id] = true
	}
	return file.Frameworks, nil
}
