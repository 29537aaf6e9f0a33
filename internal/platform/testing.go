package platform

import (
	"crypto/sha256"
	"errors"
	"sync"
)

// ErrSourceClosed is returned by test providers that refuse to produce bytes.
var ErrSourceClosed = errors.New("random source unavailable")

// Sequence replays a fixed byte pattern in a loop. It is deterministic and
// only meant for tests and reproducible demos.
type Sequence struct {
	mu    sync.Mutex
	bytes []byte
	pos   int
	reads int
}

// NewSequence returns a provider cycling over pattern.
func NewSequence(pattern []byte) *Sequence {
	cp := make([]byte, len(pattern))
	copy(cp, pattern)
	return &Sequence{bytes: cp}
}

// Read fills buf with the next bytes from the pattern.
func (s *Sequence) Read(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bytes) == 0 {
		return ErrSourceClosed
	}
	for i := range buf {
		buf[i] = s.bytes[s.pos]
		s.pos = (s.pos + 1) % len(s.bytes)
	}
	s.reads++
	return nil
}

// Reads reports how many Read calls were served.
func (s *Sequence) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Sum256 hashes with SHA-256.
func (s *Sequence) Sum256(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// Failing serves After successful reads, then fails every call. The last
// buffer it was handed is kept so tests can check it was wiped.
type Failing struct {
	After int
	calls int
	Last  []byte
}

// Read fills buf with 0x01 until the budget is spent.
func (f *Failing) Read(buf []byte) error {
	f.Last = buf
	if f.calls >= f.After {
		return ErrSourceClosed
	}
	f.calls++
	for i := range buf {
		buf[i] = 0x01
	}
	return nil
}

// Sum256 hashes with SHA-256.
func (f *Failing) Sum256(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}
