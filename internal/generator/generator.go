// Package generator builds passwords from a secure random source using
// rejection sampling.
package generator

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/paranoid/internal/charset"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
)

// Generation errors.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrCSPRNGFailure          = errors.New("random source failure")
	ErrRequirementsImpossible = errors.New("requirements cannot be satisfied")
	ErrAttemptsExhausted      = errors.New("constrained generation attempts exhausted")
)

const (
	// DefaultMaxAttempts bounds the constrained generation retry loop.
	DefaultMaxAttempts = 100
	// DefaultMaxMulti caps GenerateMultiple.
	DefaultMaxMulti = 10

	chunkSize = 512
)

// Generator produces uniformly distributed passwords.
type Generator struct {
	src         platform.Provider
	maxAttempts int
	maxMulti    int
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides the constrained generation retry bound.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithMaxMulti overrides the GenerateMultiple cap.
func WithMaxMulti(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxMulti = n
		}
	}
}

// New returns a Generator drawing bytes from src.
func New(src platform.Provider, opts ...Option) *Generator {
	g := &Generator{
		src:         src,
		maxAttempts: DefaultMaxAttempts,
		maxMulti:    DefaultMaxMulti,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxValid returns the largest byte value accepted for a charset of size n.
// Bytes above it are discarded so that byte mod n is unbiased.
func MaxValid(n int) int {
	return (256/n)*n - 1
}

// RejectionRatePct returns the share of byte values discarded for size n.
func RejectionRatePct(n int) float64 {
	return float64(255-MaxValid(n)) / 256.0 * 100.0
}

// Generate returns a password of length symbols drawn from cs. The caller
// owns the returned slice and should Wipe it when done.
func (g *Generator) Generate(cs string, length int) ([]byte, error) {
	if err := validate(cs, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	if err := g.fill(cs, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateMultiple returns count independent passwords. On failure every
// password already produced is wiped and none are returned.
func (g *Generator) GenerateMultiple(cs string, length, count int) ([][]byte, error) {
	if err := validate(cs, length); err != nil {
		return nil, err
	}
	if count <= 0 || count > g.maxMulti {
		return nil, fmt.Errorf("%w: count %d outside 1..%d", ErrInvalidArgument, count, g.maxMulti)
	}
	out := make([][]byte, count)
	for i := range out {
		out[i] = make([]byte, length)
		if err := g.fill(cs, out[i]); err != nil {
			for _, pw := range out {
				platform.Wipe(pw)
			}
			return nil, err
		}
	}
	return out, nil
}

// GenerateBatch returns count passwords of length concatenated into one
// buffer, as consumed by the statistical auditors.
func (g *Generator) GenerateBatch(cs string, length, count int) ([]byte, error) {
	if err := validate(cs, length); err != nil {
		return nil, err
	}
	if count <= 0 || count > model.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size %d outside 1..%d", ErrInvalidArgument, count, model.MaxBatchSize)
	}
	batch := make([]byte, count*length)
	for i := 0; i < count; i++ {
		if err := g.fill(cs, batch[i*length:(i+1)*length]); err != nil {
			platform.Wipe(batch)
			return nil, err
		}
	}
	return batch, nil
}

// GenerateConstrained returns a password meeting the per-class minimums in
// req. Whole candidates are regenerated until one qualifies, which keeps the
// distribution uniform over the qualifying passwords.
func (g *Generator) GenerateConstrained(cs string, length int, req model.Requirements) ([]byte, error) {
	if err := validate(cs, length); err != nil {
		return nil, err
	}
	if req.MinLowercase < 0 || req.MinUppercase < 0 || req.MinDigits < 0 || req.MinSymbols < 0 {
		return nil, fmt.Errorf("%w: negative minimum", ErrInvalidArgument)
	}
	if !charset.Feasible(cs, length, req) {
		return nil, ErrRequirementsImpossible
	}

	out := make([]byte, length)
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := g.fill(cs, out); err != nil {
			return nil, err
		}
		if req.Satisfied(charset.Compose(out)) {
			return out, nil
		}
	}
	platform.Wipe(out)
	return nil, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, g.maxAttempts)
}

// fill writes len(out) symbols into out. Accepted bytes map through
// byte mod n; bytes above MaxValid are dropped.
func (g *Generator) fill(cs string, out []byte) error {
	n := len(cs)
	maxValid := byte(MaxValid(n))
	var buf [chunkSize]byte
	defer platform.Wipe(buf[:])

	filled := 0
	for filled < len(out) {
		need := (len(out) - filled) * 2
		if need > chunkSize {
			need = chunkSize
		}
		if err := g.src.Read(buf[:need]); err != nil {
			platform.Wipe(out)
			return fmt.Errorf("%w: %v", ErrCSPRNGFailure, err)
		}
		for i := 0; i < need && filled < len(out); i++ {
			if buf[i] <= maxValid {
				out[filled] = cs[int(buf[i])%n]
				filled++
			}
		}
	}
	return nil
}

func validate(cs string, length int) error {
	if len(cs) == 0 || len(cs) > model.MaxCharsetLen {
		return fmt.Errorf("%w: charset size %d outside 1..%d", ErrInvalidArgument, len(cs), model.MaxCharsetLen)
	}
	if length <= 0 || length > model.MaxPasswordLen {
		return fmt.Errorf("%w: length %d outside 1..%d", ErrInvalidArgument, length, model.MaxPasswordLen)
	}
	return nil
}
