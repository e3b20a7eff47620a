package monitor

import (
	"time"

	"github.com/osa030/scrobd/internal/domain/track"
)

// NowPlayingEvent announces that a track has been recognized as playing.
// It is non-authoritative; a stale update costs nothing.
type NowPlayingEvent struct {
	Track       track.Track
	SourceAppID string
}

// ScrobbleEvent records that a play session qualified as a listen.
// ListenedAt is the session start, not the qualification time.
type ScrobbleEvent struct {
	Track       track.Track
	ListenedAt  time.Time
	SourceAppID string
}

// Events is the outcome of a single poll. At most one of each field is
// set per call; UnknownApp carries the app identifier awaiting a user
// decision.
type Events struct {
	NowPlaying *NowPlayingEvent
	Scrobble   *ScrobbleEvent
	UnknownApp string
}
