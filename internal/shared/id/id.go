// Package id provides centralized ID generation for the daemon.
//
// IDs are prefixed ULIDs drawn from a monotonic entropy source:
//   - Lexicographic sortability: creation order is visible in logs
//   - Prefixed types: sess_* for terminal sessions, trc_*/spn_* for tracing
//   - Uniqueness: within one process two IDs never compare equal, even when
//     generated in the same millisecond
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for the ID kinds the daemon issues
const (
	SessionPrefix = "sess"
	TracePrefix   = "trc"
	SpanPrefix    = "spn"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	mu      sync.Mutex // Protects entropy and last
	entropy io.Reader
	last    ulid.ULID
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by monotonic, cryptographically
// secure entropy
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID strictly greater than every ULID previously
// returned by g
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(time.Now())
	if ms < g.last.Time() {
		// Wall clock stepped backwards; stay on the last timestamp so the
		// monotonic reader keeps incrementing.
		ms = g.last.Time()
	}

	next := ulid.MustNew(ms, g.entropy)
	g.last = next
	return next
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTraceID generates a trace ID for request correlation
func NewTraceID() string {
	return Default().GenerateWithPrefix(TracePrefix)
}

// NewSpanID generates a span ID
func NewSpanID() string {
	return Default().GenerateWithPrefix(SpanPrefix)
}
