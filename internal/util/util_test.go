package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimQuotes(tt.input))
		})
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	assert.Equal(t, `he"llo`, FixEscapeQuotes(`he""llo`))
	assert.Equal(t, `a"b"c`, FixEscapeQuotes(`a""b""c`))
	assert.Equal(t, "plain", FixEscapeQuotes("plain"))
}

func TestCleanArgs(t *testing.T) {
	args := CleanArgs([]string{` "12" `, `"a""b"`})
	assert.Equal(t, []string{"12", `a"b`}, args)
}

func TestBoundedFraction(t *testing.T) {
	assert.InDelta(t, 0.5, BoundedFraction(50, 100), 1e-9)
	assert.InDelta(t, 1.0, BoundedFraction(500, 100), 1e-9)
	assert.InDelta(t, 0.0, BoundedFraction(-3, 100), 1e-9)
	assert.InDelta(t, 1.0, BoundedFraction(3, 0), 1e-9)
}

func TestFromUpToMax(t *testing.T) {
	assert.Equal(t, 0, From0UpToMax(13, 0))
	assert.Equal(t, 13, From0UpToMax(13, 1))
	assert.Equal(t, 6, From0UpToMax(13, 0.5))

	assert.Equal(t, 1, From1UpToMax(5, 0))
	assert.Equal(t, 5, From1UpToMax(5, 1))
	assert.Equal(t, 3, From1UpToMax(5, 0.5))
	assert.Equal(t, 1, From1UpToMax(1, 1))
	assert.Equal(t, 5, From1UpToMax(5, 7))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 5))
	assert.Equal(t, 5.0, Clamp(9, 0, 5))
	assert.Equal(t, 2.5, Clamp(2.5, 0, 5))
}
