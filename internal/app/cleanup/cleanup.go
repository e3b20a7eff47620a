// Package cleanup provides text normalization for track metadata.
// Sources tend to decorate titles and album names with markers such as
// "[Explicit]" that should not reach the listen-tracking backends.
package cleanup

import (
	"regexp"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// Cleaner strips configured noise patterns from free-text fields.
type Cleaner struct {
	enabled  bool
	patterns []*regexp.Regexp
}

// Config represents cleaner configuration.
type Config struct {
	Enabled  bool
	Patterns []string
}

// New compiles the configured patterns into a Cleaner. A pattern that
// fails to compile is logged and skipped; it never aborts startup.
func New(cfg Config) *Cleaner {
	c := &Cleaner{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return c
	}

	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			zlog.Warn().Msgf("Invalid cleanup pattern %q: %v", p, err)
			continue
		}
		c.patterns = append(c.patterns, re)
	}
	return c
}

// Clean applies each pattern in declaration order, removing all matches,
// then trims surrounding whitespace. When cleanup is disabled the input
// is returned unchanged. Clean is idempotent for a fixed pattern set.
func (c *Cleaner) Clean(text string) string {
	if !c.enabled {
		return text
	}

	result := text
	for _, re := range c.patterns {
		result = re.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

// PatternCount returns the number of successfully compiled patterns.
func (c *Cleaner) PatternCount() int {
	return len(c.patterns)
}
