// Package track provides the Track domain entity.
package track

import "fmt"

// Track represents a normalized media track as reported by a now-playing
// source. Text fields are already cleaned by the time a Track is built.
type Track struct {
	Title       string // Track title
	Artist      string // Artist name
	Album       string // Album name (empty if unknown)
	DurationSec uint64 // Track duration in seconds (0 if unknown)
}

// Equal reports whether two tracks refer to the same piece of music.
// Identity is structural on title, artist and album; duration is a
// playback hint and takes no part in it.
func (t Track) Equal(other Track) bool {
	return t.Title == other.Title &&
		t.Artist == other.Artist &&
		t.Album == other.Album
}

// String returns the "Artist - Title" display form.
func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}
