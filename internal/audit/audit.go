// Package audit runs the staged generation audit and maps its failures to
// status codes.
package audit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/paranoid/internal/charset"
	"github.com/verte-zerg/paranoid/internal/compliance"
	"github.com/verte-zerg/paranoid/internal/entropy"
	"github.com/verte-zerg/paranoid/internal/generator"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/pattern"
	"github.com/verte-zerg/paranoid/internal/platform"
	"github.com/verte-zerg/paranoid/internal/stats"
)

// Errors returned by Run. Generation failures carry the generator sentinels.
var (
	ErrInvalidArgument        = generator.ErrInvalidArgument
	ErrCSPRNGFailure          = generator.ErrCSPRNGFailure
	ErrRequirementsImpossible = generator.ErrRequirementsImpossible
	ErrAttemptsExhausted      = generator.ErrAttemptsExhausted
)

// Status values. The command line tool exits with their absolute value.
const (
	StatusOK                     = 0
	StatusCSPRNGFailure          = -1
	StatusInvalidArgument        = -2
	StatusRequirementsImpossible = -3
	StatusAttemptsExhausted      = -4
)

// Status maps an error returned by this module to its status value. Unknown
// errors report a random source failure.
func Status(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, charset.ErrInvalid):
		return StatusInvalidArgument
	case errors.Is(err, ErrRequirementsImpossible):
		return StatusRequirementsImpossible
	case errors.Is(err, ErrAttemptsExhausted):
		return StatusAttemptsExhausted
	default:
		return StatusCSPRNGFailure
	}
}

// Recorder receives audit telemetry.
type Recorder interface {
	StageEntered(stage model.Stage)
	AuditFinished(res *model.AuditResult, err error, elapsed time.Duration)
}

// Auditor runs audits against one random source. It keeps no per-run state,
// so one Auditor may serve concurrent Run calls if its provider allows it.
type Auditor struct {
	src      platform.Provider
	gen      *generator.Generator
	logger   *slog.Logger
	observer func(model.Stage)
	recorder Recorder
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver registers fn to be called after every stage change.
func WithObserver(fn func(model.Stage)) Option {
	return func(a *Auditor) {
		a.observer = fn
	}
}

// WithRecorder registers a telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(a *Auditor) {
		a.recorder = r
	}
}

// WithGeneratorOptions passes options to the underlying generator.
func WithGeneratorOptions(opts ...generator.Option) Option {
	return func(a *Auditor) {
		a.gen = generator.New(a.src, opts...)
	}
}

// New returns an Auditor drawing randomness and digests from src.
func New(src platform.Provider, opts ...Option) *Auditor {
	a := &Auditor{
		src:    src,
		gen:    generator.New(src),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generator returns the generator the auditor draws passwords from.
func (a *Auditor) Generator() *generator.Generator {
	return a.gen
}

// Detail carries intermediate data that does not fit the result record.
type Detail struct {
	Result *model.AuditResult
	Chi    stats.ChiSquaredResult
	Issues []pattern.Issue
}

// Run executes the full audit and returns a result owned by the caller. On
// failure the partially filled result is returned with the error, the stage
// left where the pipeline stopped and the password wiped.
func (a *Auditor) Run(req model.AuditRequest) (*model.AuditResult, error) {
	d, err := a.RunDetailed(req)
	return d.Result, err
}

// RunDetailed is Run plus the frequency table and pattern matches.
func (a *Auditor) RunDetailed(req model.AuditRequest) (Detail, error) {
	started := time.Now()
	res := &model.AuditResult{RunID: uuid.NewString()}
	d := Detail{Result: res}
	log := a.logger.With("run", res.RunID)

	err := a.run(req, &d, log)
	if err != nil {
		platform.Wipe(res.Password)
		res.Password = nil
		res.SHA256Hex = ""
		log.Warn("audit failed", "stage", res.Stage.String(), "status", Status(err), "err", err)
	} else {
		log.Debug("audit finished", "all_pass", res.AllPass, "elapsed", time.Since(started))
	}
	if a.recorder != nil {
		a.recorder.AuditFinished(res, err, time.Since(started))
	}
	return d, err
}

func (a *Auditor) run(req model.AuditRequest, d *Detail, log *slog.Logger) error {
	res := d.Result
	cs, err := validateRequest(req)
	if err != nil {
		return err
	}
	n, length, batchSize := len(cs), req.Length, req.BatchSize
	res.CharsetSize = n
	res.PasswordLength = length
	res.BatchSize = batchSize

	a.enter(res, model.StageGenerate, log)
	pw, err := a.gen.Generate(cs, length)
	if err != nil {
		return err
	}
	res.Password = pw
	res.SHA256Hex = platform.HexDigest(a.src, pw)

	a.enter(res, model.StageChiSquared, log)
	batch, err := a.gen.GenerateBatch(cs, length, batchSize)
	if err != nil {
		return err
	}
	defer platform.Wipe(batch)
	d.Chi = stats.ChiSquared(batch, cs)
	res.ChiSquared = d.Chi.Statistic
	res.ChiDF = d.Chi.DF
	res.ChiPValue = d.Chi.PValue
	res.ChiPass = d.Chi.Pass()

	a.enter(res, model.StageSerial, log)
	res.SerialCorrelation = stats.SerialCorrelation(batch)
	res.SerialPass = stats.SerialPass(res.SerialCorrelation)
	res.RunsObserved, res.RunsExpected = stats.RunsTest(batch)

	a.enter(res, model.StageCollision, log)
	dupes, err := stats.CountCollisions(a.src, batch, length)
	if err != nil {
		return fmt.Errorf("failed to count collisions: %w", err)
	}
	res.Duplicates = dupes
	res.CollisionPass = dupes == 0

	a.enter(res, model.StageEntropy, log)
	proof := entropy.NewProof(n, length)
	res.BitsPerChar = proof.BitsPerChar
	res.TotalEntropy = proof.TotalEntropy
	res.Log10SearchSpace = proof.Log10SearchSpace
	res.BruteForceYears = proof.BruteForceYears
	res.NISTMemorized = proof.Memorized
	res.NISTHighValue = proof.HighValue
	res.NISTCryptoEquiv = proof.CryptoEquiv
	res.NISTPostQuantum = proof.PostQuantum
	uniq := entropy.NewUniqueness(n, length, batchSize)
	res.CollisionProbability = uniq.CollisionProbability
	res.PasswordsFor50Pct = uniq.PasswordsFor50Pct
	res.PasswordsFor1PPB = uniq.PasswordsFor1PPB
	res.RejectionMaxValid = generator.MaxValid(n)
	res.RejectionRatePct = generator.RejectionRatePct(n)

	a.enter(res, model.StagePattern, log)
	d.Issues = pattern.Find(pw)
	res.PatternIssues = len(d.Issues)

	a.enter(res, model.StageCompliance, log)
	res.Composition = charset.Compose(pw)
	compliance.Evaluate(res)

	res.AllPass = res.ChiPass && res.SerialPass && res.CollisionPass && res.PatternIssues == 0
	a.enter(res, model.StageDone, log)
	return nil
}

func (a *Auditor) enter(res *model.AuditResult, stage model.Stage, log *slog.Logger) {
	res.Stage = stage
	log.Debug("audit stage", "stage", stage.String(), "n", int(stage))
	if a.recorder != nil {
		a.recorder.StageEntered(stage)
	}
	if a.observer != nil {
		a.observer(stage)
	}
}

// validateRequest normalizes the charset and checks every bound before any
// randomness is drawn.
func validateRequest(req model.AuditRequest) (string, error) {
	cs, err := charset.Validate(req.Charset, model.MaxCharsetLen)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if req.Length <= 0 || req.Length > model.MaxPasswordLen {
		return "", fmt.Errorf("%w: length %d outside 1..%d", ErrInvalidArgument, req.Length, model.MaxPasswordLen)
	}
	if req.BatchSize <= 0 || req.BatchSize > model.MaxBatchSize {
		return "", fmt.Errorf("%w: batch size %d outside 1..%d", ErrInvalidArgument, req.BatchSize, model.MaxBatchSize)
	}
	return cs, nil
}
