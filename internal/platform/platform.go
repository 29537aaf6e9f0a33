// Package platform supplies the random source and digest used by the generator
// and auditors.
package platform

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// DigestSize is the length of a Sum256 digest.
const DigestSize = sha256.Size

// Provider is the capability the core consumes: secure random bytes and a
// fixed 256-bit hash. Read must fill buf completely or fail.
type Provider interface {
	Read(buf []byte) error
	Sum256(data []byte) [DigestSize]byte
}

// System reads from the operating system CSPRNG and hashes with SHA-256.
type System struct{}

// NewSystem returns the default provider.
func NewSystem() System {
	return System{}
}

// Read fills buf from crypto/rand.
func (System) Read(buf []byte) error {
	if len(buf) == 0 {
		return errors.New("empty random buffer")
	}
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Errorf("read system random: %w", err)
	}
	return nil
}

// Sum256 returns the SHA-256 digest of data.
func (System) Sum256(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// HexDigest returns the lowercase hex SHA-256 digest of data.
func HexDigest(p Provider, data []byte) string {
	sum := p.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Wipe zeroes buf in place.
func Wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
