package journal

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator produces run tokens.
//
// Code that starts runs depends on this interface rather than a concrete
// generator so tests can substitute predetermined tokens.
type TokenGenerator interface {
	// Generate returns a new unique run token.
	Generate() string
}

// UUIDv7Generator mints UUIDv7 run tokens. The version-7 timestamp bits
// make tokens sort by creation time, which keeps `journal runs` output
// aligned with the seq column. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. Panics only if the system
// entropy source fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a predetermined token sequence, for tests that
// need stable journal contents. Safe for concurrent use.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator builds a generator that yields the given tokens in
// order and panics once they run out, so a test that mints more runs than
// it planned for fails loudly.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
