package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultPatterns = []string{
	`\s*\[Explicit\]`,
	`\s*\[Clean\]`,
	`\s*\(Explicit\)`,
	`\s*\(Clean\)`,
	`\s*- Explicit`,
	`\s*- Clean`,
}

func TestCleaner_Clean(t *testing.T) {
	cleaner := New(Config{Enabled: true, Patterns: defaultPatterns})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "explicit marker in brackets",
			input:    "HUMBLE. [Explicit]",
			expected: "HUMBLE.",
		},
		{
			name:     "explicit marker in parentheses",
			input:    "HUMBLE. (Explicit)",
			expected: "HUMBLE.",
		},
		{
			name:     "clean marker with dash",
			input:    "HUMBLE. - Clean",
			expected: "HUMBLE.",
		},
		{
			name:     "no marker",
			input:    "Bohemian Rhapsody",
			expected: "Bohemian Rhapsody",
		},
		{
			name:     "marker mid-string",
			input:    "DAMN. [Explicit] Deluxe",
			expected: "DAMN. Deluxe",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  Creep [Explicit]  ",
			expected: "Creep",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleaner.Clean(tt.input))
		})
	}
}

func TestCleaner_Idempotent(t *testing.T) {
	cleaner := New(Config{Enabled: true, Patterns: defaultPatterns})

	inputs := []string{
		"HUMBLE. [Explicit]",
		"Track (Clean) - Clean",
		"  padded  ",
		"unchanged",
		"",
	}

	for _, in := range inputs {
		once := cleaner.Clean(in)
		twice := cleaner.Clean(once)
		assert.Equal(t, once, twice, "Clean must be idempotent for %q", in)
	}
}

func TestCleaner_Disabled(t *testing.T) {
	cleaner := New(Config{Enabled: false, Patterns: defaultPatterns})

	// Disabled cleaner is the identity, including whitespace.
	assert.Equal(t, "  HUMBLE. [Explicit]  ", cleaner.Clean("  HUMBLE. [Explicit]  "))
	assert.Equal(t, 0, cleaner.PatternCount())
}

func TestCleaner_InvalidPatternSkipped(t *testing.T) {
	cleaner := New(Config{
		Enabled:  true,
		Patterns: []string{`\s*\[Explicit\]`, `[invalid(`, `\s*\[Clean\]`},
	})

	// The broken pattern is dropped, the others still apply.
	assert.Equal(t, 2, cleaner.PatternCount())
	assert.Equal(t, "Song", cleaner.Clean("Song [Explicit] [Clean]"))
}
