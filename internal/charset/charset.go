// Package charset validates symbol sets and classifies characters.
package charset

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/paranoid/internal/model"
)

// ErrInvalid is returned for charsets that cannot be used for generation.
var ErrInvalid = errors.New("invalid charset")

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"
	symbols   = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

var presets = map[string]string{
	"lower":  lowercase,
	"upper":  uppercase,
	"digits": digits,
	"alpha":  lowercase + uppercase,
	"alnum":  lowercase + uppercase + digits,
	"hex":    digits + "abcdef",
	"full":   lowercase + uppercase + digits + symbols,
}

// Preset returns a named charset.
func Preset(name string) (string, bool) {
	cs, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return cs, ok
}

// PresetNames lists available preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the preset named raw, or raw itself when no preset matches.
func Resolve(raw string) string {
	if cs, ok := Preset(raw); ok {
		return cs
	}
	return raw
}

// Validate deduplicates raw, sorts it by code point and rejects anything
// outside printable ASCII (32..126). capacity bounds the number of unique
// symbols the caller can accept; values <= 0 mean MaxCharsetLen.
func Validate(raw string, capacity int) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	var seen [128]bool
	unique := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < 32 || c > 126 {
			return "", fmt.Errorf("%w: byte 0x%02x at offset %d is not printable ASCII", ErrInvalid, c, i)
		}
		if !seen[c] {
			seen[c] = true
			unique++
		}
	}
	if capacity <= 0 {
		capacity = model.MaxCharsetLen
	}
	if unique > model.MaxCharsetLen {
		return "", fmt.Errorf("%w: %d unique symbols exceeds %d", ErrInvalid, unique, model.MaxCharsetLen)
	}
	if unique > capacity {
		return "", fmt.Errorf("%w: %d unique symbols exceeds capacity %d", ErrInvalid, unique, capacity)
	}

	out := make([]byte, 0, unique)
	for c := 32; c <= 126; c++ {
		if seen[c] {
			out = append(out, byte(c))
		}
	}
	return string(out), nil
}

// Class is a character class used by composition rules.
type Class int

// Character classes. Anything that is not a letter or digit is a symbol.
const (
	Lower Class = iota
	Upper
	Digit
	Symbol
)

// Classify returns the class of c.
func Classify(c byte) Class {
	switch {
	case c >= 'a' && c <= 'z':
		return Lower
	case c >= 'A' && c <= 'Z':
		return Upper
	case c >= '0' && c <= '9':
		return Digit
	default:
		return Symbol
	}
}

// Compose counts the character classes in pw.
func Compose(pw []byte) model.Composition {
	var c model.Composition
	for _, b := range pw {
		switch Classify(b) {
		case Lower:
			c.Lowercase++
		case Upper:
			c.Uppercase++
		case Digit:
			c.Digits++
		default:
			c.Symbols++
		}
	}
	return c
}

// Feasible reports whether a password of length drawn from cs can meet req.
func Feasible(cs string, length int, req model.Requirements) bool {
	if req.Total() > length {
		return false
	}
	avail := Compose([]byte(cs))
	if req.MinLowercase > 0 && avail.Lowercase == 0 {
		return false
	}
	if req.MinUppercase > 0 && avail.Uppercase == 0 {
		return false
	}
	if req.MinDigits > 0 && avail.Digits == 0 {
		return false
	}
	if req.MinSymbols > 0 && avail.Symbols == 0 {
		return false
	}
	return true
}
