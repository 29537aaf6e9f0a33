// Package wire encodes audit results in a versioned, tagged binary layout.
// Every record field has a fixed field number in record order; numbers are
// never reused and new fields are only appended. Unknown fields are skipped
// on decode, so older readers keep working against newer writers.
package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/verte-zerg/paranoid/internal/model"
)

// SchemaVersion is written as field 1 of every record.
const SchemaVersion = 1

const versionField protowire.Number = 1

// Decode errors.
var (
	ErrMalformed = errors.New("malformed record")
	ErrVersion   = errors.New("unsupported schema version")
	ErrFieldKind = errors.New("field has unexpected wire type")
	ErrNoVersion = errors.New("record has no schema version")
)

// Kind is the value type of a field.
type Kind string

// Field kinds.
const (
	KindBytes  Kind = "bytes"
	KindString Kind = "string"
	KindInt    Kind = "sint64"
	KindDouble Kind = "double"
	KindBool   Kind = "bool"
)

// Field describes one entry of the schema.
type Field struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
}

type accessor struct {
	Field
	i   func(*model.AuditResult) *int
	f   func(*model.AuditResult) *float64
	b   func(*model.AuditResult) *bool
	s   func(*model.AuditResult) *string
	raw func(*model.AuditResult) *[]byte
}

func intField(n int, name string, p func(*model.AuditResult) *int) accessor {
	return accessor{Field: Field{n, name, KindInt}, i: p}
}

func doubleField(n int, name string, p func(*model.AuditResult) *float64) accessor {
	return accessor{Field: Field{n, name, KindDouble}, f: p}
}

func boolField(n int, name string, p func(*model.AuditResult) *bool) accessor {
	return accessor{Field: Field{n, name, KindBool}, b: p}
}

// schema lists record fields in order. Append only.
var schema = []accessor{
	{Field: Field{2, "password", KindBytes}, raw: func(r *model.AuditResult) *[]byte { return &r.Password }},
	{Field: Field{3, "sha256_hex", KindString}, s: func(r *model.AuditResult) *string { return &r.SHA256Hex }},
	intField(4, "password_length", func(r *model.AuditResult) *int { return &r.PasswordLength }),
	intField(5, "charset_size", func(r *model.AuditResult) *int { return &r.CharsetSize }),
	doubleField(6, "chi2_statistic", func(r *model.AuditResult) *float64 { return &r.ChiSquared }),
	intField(7, "chi2_df", func(r *model.AuditResult) *int { return &r.ChiDF }),
	doubleField(8, "chi2_p_value", func(r *model.AuditResult) *float64 { return &r.ChiPValue }),
	boolField(9, "chi2_pass", func(r *model.AuditResult) *bool { return &r.ChiPass }),
	doubleField(10, "serial_correlation", func(r *model.AuditResult) *float64 { return &r.SerialCorrelation }),
	boolField(11, "serial_pass", func(r *model.AuditResult) *bool { return &r.SerialPass }),
	intField(12, "batch_size", func(r *model.AuditResult) *int { return &r.BatchSize }),
	intField(13, "duplicates", func(r *model.AuditResult) *int { return &r.Duplicates }),
	boolField(14, "collision_pass", func(r *model.AuditResult) *bool { return &r.CollisionPass }),
	doubleField(15, "bits_per_char", func(r *model.AuditResult) *float64 { return &r.BitsPerChar }),
	doubleField(16, "total_entropy", func(r *model.AuditResult) *float64 { return &r.TotalEntropy }),
	doubleField(17, "log10_search_space", func(r *model.AuditResult) *float64 { return &r.Log10SearchSpace }),
	doubleField(18, "brute_force_years", func(r *model.AuditResult) *float64 { return &r.BruteForceYears }),
	boolField(19, "nist_memorized", func(r *model.AuditResult) *bool { return &r.NISTMemorized }),
	boolField(20, "nist_high_value", func(r *model.AuditResult) *bool { return &r.NISTHighValue }),
	boolField(21, "nist_crypto_equiv", func(r *model.AuditResult) *bool { return &r.NISTCryptoEquiv }),
	boolField(22, "nist_post_quantum", func(r *model.AuditResult) *bool { return &r.NISTPostQuantum }),
	doubleField(23, "collision_probability", func(r *model.AuditResult) *float64 { return &r.CollisionProbability }),
	doubleField(24, "passwords_for_50pct", func(r *model.AuditResult) *float64 { return &r.PasswordsFor50Pct }),
	intField(25, "rejection_max_valid", func(r *model.AuditResult) *int { return &r.RejectionMaxValid }),
	doubleField(26, "rejection_rate_pct", func(r *model.AuditResult) *float64 { return &r.RejectionRatePct }),
	intField(27, "pattern_issues", func(r *model.AuditResult) *int { return &r.PatternIssues }),
	boolField(28, "compliance_nist", func(r *model.AuditResult) *bool { return &r.CompliantNIST }),
	boolField(29, "compliance_pci_dss", func(r *model.AuditResult) *bool { return &r.CompliantPCIDSS }),
	boolField(30, "compliance_hipaa", func(r *model.AuditResult) *bool { return &r.CompliantHIPAA }),
	boolField(31, "compliance_soc2", func(r *model.AuditResult) *bool { return &r.CompliantSOC2 }),
	boolField(32, "compliance_gdpr", func(r *model.AuditResult) *bool { return &r.CompliantGDPR }),
	boolField(33, "compliance_iso27001", func(r *model.AuditResult) *bool { return &r.CompliantISO27001 }),
	intField(34, "count_lowercase", func(r *model.AuditResult) *int { return &r.Composition.Lowercase }),
	intField(35, "count_uppercase", func(r *model.AuditResult) *int { return &r.Composition.Uppercase }),
	intField(36, "count_digits", func(r *model.AuditResult) *int { return &r.Composition.Digits }),
	intField(37, "count_symbols", func(r *model.AuditResult) *int { return &r.Composition.Symbols }),
	boolField(38, "all_pass", func(r *model.AuditResult) *bool { return &r.AllPass }),
	intField(39, "current_stage", func(r *model.AuditResult) *int { return (*int)(&r.Stage) }),
	intField(40, "runs_observed", func(r *model.AuditResult) *int { return &r.RunsObserved }),
	doubleField(41, "runs_expected", func(r *model.AuditResult) *float64 { return &r.RunsExpected }),
	doubleField(42, "passwords_for_1ppb", func(r *model.AuditResult) *float64 { return &r.PasswordsFor1PPB }),
	{Field: Field{43, "run_id", KindString}, s: func(r *model.AuditResult) *string { return &r.RunID }},
}

var byNumber = func() map[protowire.Number]*accessor {
	m := make(map[protowire.Number]*accessor, len(schema))
	for i := range schema {
		m[protowire.Number(schema[i].Number)] = &schema[i]
	}
	return m
}()

// Fields returns the schema including the version field, in number order.
func Fields() []Field {
	out := make([]Field, 0, len(schema)+1)
	out = append(out, Field{int(versionField), "schema_version", KindInt})
	for _, a := range schema {
		out = append(out, a.Field)
	}
	return out
}

// Encode appends the encoded record to b. Every field is written, including
// zero values.
func Encode(b []byte, r *model.AuditResult) []byte {
	b = protowire.AppendTag(b, versionField, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(SchemaVersion))
	for i := range schema {
		a := &schema[i]
		num := protowire.Number(a.Number)
		switch a.Kind {
		case KindBytes:
			b = protowire.AppendTag(b, num, protowire.BytesType)
			b = protowire.AppendBytes(b, *a.raw(r))
		case KindString:
			b = protowire.AppendTag(b, num, protowire.BytesType)
			b = protowire.AppendString(b, *a.s(r))
		case KindInt:
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(*a.i(r))))
		case KindDouble:
			b = protowire.AppendTag(b, num, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, math.Float64bits(*a.f(r)))
		case KindBool:
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, protowire.EncodeBool(*a.b(r)))
		}
	}
	return b
}

// Decode parses a record produced by Encode with the same or an older
// schema version.
func Decode(b []byte) (*model.AuditResult, error) {
	r := &model.AuditResult{}
	version := int64(-1)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if num == versionField {
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("%w: schema_version", ErrFieldKind)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			version = protowire.DecodeZigZag(v)
			if version < 1 || version > SchemaVersion {
				return nil, fmt.Errorf("%w: %d", ErrVersion, version)
			}
			b = b[n:]
			continue
		}

		a, ok := byNumber[num]
		if !ok {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		n, err := decodeField(a, typ, b, r)
		if err != nil {
			return nil, err
		}
		b = b[n:]
	}
	if version < 0 {
		return nil, ErrNoVersion
	}
	return r, nil
}

func decodeField(a *accessor, typ protowire.Type, b []byte, r *model.AuditResult) (int, error) {
	want := protowire.VarintType
	switch a.Kind {
	case KindBytes, KindString:
		want = protowire.BytesType
	case KindDouble:
		want = protowire.Fixed64Type
	}
	if typ != want {
		return 0, fmt.Errorf("%w: %s", ErrFieldKind, a.Name)
	}

	var n int
	switch a.Kind {
	case KindBytes:
		var v []byte
		v, n = protowire.ConsumeBytes(b)
		if n >= 0 {
			*a.raw(r) = append([]byte(nil), v...)
		}
	case KindString:
		var v string
		v, n = protowire.ConsumeString(b)
		if n >= 0 {
			*a.s(r) = v
		}
	case KindInt:
		var v uint64
		v, n = protowire.ConsumeVarint(b)
		if n >= 0 {
			*a.i(r) = int(protowire.DecodeZigZag(v))
		}
	case KindDouble:
		var v uint64
		v, n = protowire.ConsumeFixed64(b)
		if n >= 0 {
			*a.f(r) = math.Float64frombits(v)
		}
	case KindBool:
		var v uint64
		v, n = protowire.ConsumeVarint(b)
		if n >= 0 {
			*a.b(r) = protowire.DecodeBool(v)
		}
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, a.Name, protowire.ParseError(n))
	}
	return n, nil
}
