package journal

import "testing"

func TestUUIDv7Generator_ProducesUniqueTokens(t *testing.T) {
	gen := UUIDv7Generator{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := gen.Generate()
		if len(token) != 36 {
			t.Fatalf("token %q is not a hyphenated UUID", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestFixedGenerator_ReturnsTokensInOrder(t *testing.T) {
	gen := NewFixedGenerator("run-1", "run-2")

	if got := gen.Generate(); got != "run-1" {
		t.Errorf("first token = %q, want run-1", got)
	}
	if got := gen.Generate(); got != "run-2" {
		t.Errorf("second token = %q, want run-2", got)
	}
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	gen.Generate()

	defer func() {
		if recover() == nil {
			t.Error("expected panic after exhausting tokens")
		}
	}()
	gen.Generate()
}
