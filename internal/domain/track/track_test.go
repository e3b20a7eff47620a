package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Equal(t *testing.T) {
	tests := []struct {
		name     string
		a        Track
		b        Track
		expected bool
	}{
		{
			name:     "identical tracks",
			a:        Track{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"},
			b:        Track{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"},
			expected: true,
		},
		{
			name:     "duration is not part of identity",
			a:        Track{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", DurationSec: 354},
			b:        Track{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", DurationSec: 0},
			expected: true,
		},
		{
			name:     "different title",
			a:        Track{Title: "Bohemian Rhapsody", Artist: "Queen"},
			b:        Track{Title: "Don't Stop Me Now", Artist: "Queen"},
			expected: false,
		},
		{
			name:     "different artist",
			a:        Track{Title: "Hurt", Artist: "Nine Inch Nails"},
			b:        Track{Title: "Hurt", Artist: "Johnny Cash"},
			expected: false,
		},
		{
			name:     "different album",
			a:        Track{Title: "Hurt", Artist: "Johnny Cash", Album: "American IV"},
			b:        Track{Title: "Hurt", Artist: "Johnny Cash", Album: "Unearthed"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Equal(tt.b))
			assert.Equal(t, tt.expected, tt.b.Equal(tt.a))
		})
	}
}

func TestTrack_String(t *testing.T) {
	tr := Track{Title: "Paranoid Android", Artist: "Radiohead", Album: "OK Computer"}
	assert.Equal(t, "Radiohead - Paranoid Android", tr.String())
}
