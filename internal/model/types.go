// Package model defines shared data structures.
package model

import "time"

// Limits enforced on every request.
const (
	MaxPasswordLen = 256
	MaxCharsetLen  = 128
	MaxBatchSize   = 2000
)

// Stage marks audit pipeline progress.
type Stage int

// Pipeline stages in execution order.
const (
	StageIdle Stage = iota
	StageGenerate
	StageChiSquared
	StageSerial
	StageCollision
	StageEntropy
	StagePattern
	StageCompliance
	StageDone
)

var stageNames = [...]string{
	"idle",
	"generate",
	"chi-squared",
	"serial-correlation",
	"collision",
	"entropy",
	"pattern",
	"compliance",
	"done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Requirements are per-class minimum counts for constrained generation.
type Requirements struct {
	MinLowercase int `json:"min_lowercase" yaml:"min-lowercase"`
	MinUppercase int `json:"min_uppercase" yaml:"min-uppercase"`
	MinDigits    int `json:"min_digits" yaml:"min-digits"`
	MinSymbols   int `json:"min_symbols" yaml:"min-symbols"`
}

// Total returns the sum of all minimums.
func (r Requirements) Total() int {
	return r.MinLowercase + r.MinUppercase + r.MinDigits + r.MinSymbols
}

// Satisfied reports whether a composition meets every minimum.
func (r Requirements) Satisfied(c Composition) bool {
	return c.Lowercase >= r.MinLowercase &&
		c.Uppercase >= r.MinUppercase &&
		c.Digits >= r.MinDigits &&
		c.Symbols >= r.MinSymbols
}

// GenerationRequest describes a single generation call.
type GenerationRequest struct {
	Charset      string
	Length       int
	Count        int
	Requirements *Requirements
}

// AuditRequest holds the parameters of one audit run.
type AuditRequest struct {
	Charset   string
	Length    int
	BatchSize int
}

// Composition counts character classes in a password.
type Composition struct {
	Lowercase int `json:"lowercase"`
	Uppercase int `json:"uppercase"`
	Digits    int `json:"digits"`
	Symbols   int `json:"symbols"`
}

// AuditResult is the outcome of one audit run. Field order is part of the
// exchange format; new fields go at the end.
type AuditResult struct {
	Password       []byte `json:"-"`
	SHA256Hex      string `json:"sha256_hex"`
	PasswordLength int    `json:"password_length"`
	CharsetSize    int    `json:"charset_size"`

	ChiSquared float64 `json:"chi2_statistic"`
	ChiDF      int     `json:"chi2_df"`
	ChiPValue  float64 `json:"chi2_p_value"`
	ChiPass    bool    `json:"chi2_pass"`

	SerialCorrelation float64 `json:"serial_correlation"`
	SerialPass        bool    `json:"serial_pass"`

	BatchSize     int  `json:"batch_size"`
	Duplicates    int  `json:"duplicates"`
	CollisionPass bool `json:"collision_pass"`

	BitsPerChar      float64 `json:"bits_per_char"`
	TotalEntropy     float64 `json:"total_entropy"`
	Log10SearchSpace float64 `json:"log10_search_space"`
	BruteForceYears  float64 `json:"brute_force_years"`

	NISTMemorized   bool `json:"nist_memorized"`
	NISTHighValue   bool `json:"nist_high_value"`
	NISTCryptoEquiv bool `json:"nist_crypto_equiv"`
	NISTPostQuantum bool `json:"nist_post_quantum"`

	CollisionProbability float64 `json:"collision_probability"`
	PasswordsFor50Pct    float64 `json:"passwords_for_50pct"`

	RejectionMaxValid int     `json:"rejection_max_valid"`
	RejectionRatePct  float64 `json:"rejection_rate_pct"`

	PatternIssues int `json:"pattern_issues"`

	CompliantNIST     bool `json:"compliance_nist"`
	CompliantPCIDSS   bool `json:"compliance_pci_dss"`
	CompliantHIPAA    bool `json:"compliance_hipaa"`
	CompliantSOC2     bool `json:"compliance_soc2"`
	CompliantGDPR     bool `json:"compliance_gdpr"`
	CompliantISO27001 bool `json:"compliance_iso27001"`

	Composition Composition `json:"composition"`

	AllPass bool  `json:"all_pass"`
	Stage   Stage `json:"current_stage"`

	RunsObserved     int     `json:"runs_observed"`
	RunsExpected     float64 `json:"runs_expected"`
	PasswordsFor1PPB float64 `json:"passwords_for_1ppb"`
	RunID            string  `json:"run_id"`
}

// AuditRecord is the persisted, non-secret summary of an audit run.
type AuditRecord struct {
	ID             int64
	RunID          string
	CreatedAt      time.Time
	CharsetSize    int
	PasswordLength int
	BatchSize      int
	ChiSquared     float64
	ChiPValue      float64
	Serial         float64
	Duplicates     int
	TotalEntropy   float64
	PatternIssues  int
	AllPass        bool
	Stage          Stage
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Since *time.Time
	Last  int
}
