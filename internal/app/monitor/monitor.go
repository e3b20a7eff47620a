package monitor

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/app/appfilter"
	"github.com/osa030/scrobd/internal/app/cleanup"
	"github.com/osa030/scrobd/internal/domain/track"
)

const (
	// MinTrackDurationSec is the minimum track length eligible for a listen.
	MinTrackDurationSec = 30
	// ScrobbleCeilingSec caps how long a long track must play before the
	// listen counts, regardless of the configured threshold.
	ScrobbleCeilingSec = 240
)

// Snapshot is one observation of the source's now-playing state.
// Empty text fields mean the source did not report them.
type Snapshot struct {
	Title       string
	Artist      string
	Album       string
	DurationSec uint64
	IsPlaying   bool
	SourceAppID string
	UpdateToken string // Source-side change token, opaque to the engine
}

// Source produces now-playing snapshots. A nil snapshot with a nil error
// means no media endpoint is reachable at all.
type Source interface {
	Current(ctx context.Context) (*Snapshot, error)
	Close() error
}

// AppClassifier decides whether playback from an app should be processed.
type AppClassifier interface {
	Classify(appID string) appfilter.Action
}

// playSession is the engine's record of one continuous playback of one
// track. There is at most one; it is replaced wholesale on track change.
type playSession struct {
	track          track.Track
	sourceAppID    string
	startedAt      time.Time
	durationSec    uint64
	scrobbled      bool
	nowPlayingSent bool
	updateToken    string
}

// shouldScrobble reports whether the session qualifies as a listen at
// the given instant, following the Last.fm rules: the track is at least
// 30 seconds long and has played for the configured percentage of its
// duration or 4 minutes, whichever comes first.
func (s *playSession) shouldScrobble(now time.Time, thresholdPercent int) bool {
	if s.scrobbled {
		return false
	}
	if s.durationSec < MinTrackDurationSec {
		return false
	}

	elapsed := now.Sub(s.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	thresholdSec := s.durationSec * uint64(thresholdPercent) / 100
	scrobbleAtSec := min(thresholdSec, ScrobbleCeilingSec)

	return uint64(elapsed/time.Second) >= scrobbleAtSec
}

// Config holds monitor configuration.
type Config struct {
	ThresholdPercent int // Percentage of track duration before a listen counts
}

// Monitor owns the single play session and turns snapshots into events.
// Poll must only be called from one goroutine.
type Monitor struct {
	cleaner          *cleanup.Cleaner
	apps             AppClassifier
	thresholdPercent int
	session          *playSession
}

// New creates a monitor.
func New(cleaner *cleanup.Cleaner, apps AppClassifier, cfg Config) *Monitor {
	return &Monitor{
		cleaner:          cleaner,
		apps:             apps,
		thresholdPercent: cfg.ThresholdPercent,
	}
}

// State returns the engine's current session state.
func (m *Monitor) State() State {
	switch {
	case m.session == nil:
		return StateEmpty
	case m.session.scrobbled:
		return StateActiveScrobbled
	default:
		return StateActiveUnscrobbled
	}
}

// Poll evaluates one snapshot and returns the events it produces.
//
// A nil snapshot means the media endpoint is gone and destroys the
// session. A paused snapshot leaves the session untouched so that
// resuming the same track does not restart its scrobble clock; the two
// cases are deliberately not collapsed.
func (m *Monitor) Poll(snap *Snapshot, now time.Time) Events {
	var events Events

	if snap == nil {
		if m.session != nil {
			zlog.Info().Msg("Media stopped, clearing session")
			m.session = nil
		}
		return events
	}

	if !snap.IsPlaying {
		// Paused or stopped with the endpoint still up. Keep the
		// session so resume continues it.
		return events
	}

	tr, ok := m.snapshotTrack(snap)
	if !ok {
		return events
	}

	switch m.apps.Classify(snap.SourceAppID) {
	case appfilter.ActionIgnore:
		zlog.Debug().Msgf("Ignoring playback from %q", snap.SourceAppID)
		return events
	case appfilter.ActionAskUser:
		events.UnknownApp = snap.SourceAppID
		return events
	case appfilter.ActionAllow:
	}

	if m.isNewTrack(tr, snap.UpdateToken) {
		zlog.Info().Msgf("New track: %s (%ds) from %q", tr, tr.DurationSec, snap.SourceAppID)

		m.session = &playSession{
			track:       tr,
			sourceAppID: snap.SourceAppID,
			startedAt:   now,
			durationSec: tr.DurationSec,
			updateToken: snap.UpdateToken,
			// The now-playing event is emitted synchronously with
			// creation, so the flag is set up front.
			nowPlayingSent: true,
		}
		events.NowPlaying = &NowPlayingEvent{Track: tr, SourceAppID: snap.SourceAppID}
		return events
	}

	session := m.session
	if session.shouldScrobble(now, m.thresholdPercent) {
		elapsed := uint64(now.Sub(session.startedAt) / time.Second)
		zlog.Info().Msgf("Scrobbling: %s (played %ds / %ds)", session.track, elapsed, session.durationSec)

		events.Scrobble = &ScrobbleEvent{
			Track:       session.track,
			ListenedAt:  session.startedAt,
			SourceAppID: session.sourceAppID,
		}
		session.scrobbled = true
	} else if !session.nowPlayingSent {
		events.NowPlaying = &NowPlayingEvent{Track: session.track, SourceAppID: session.sourceAppID}
		session.nowPlayingSent = true
	}

	return events
}

// snapshotTrack builds a normalized Track from a snapshot. Snapshots
// without a title or artist cannot become tracks.
func (m *Monitor) snapshotTrack(snap *Snapshot) (track.Track, bool) {
	if snap.Title == "" || snap.Artist == "" {
		return track.Track{}, false
	}

	tr := track.Track{
		Title:       m.cleaner.Clean(snap.Title),
		Artist:      m.cleaner.Clean(snap.Artist),
		Album:       m.cleaner.Clean(snap.Album),
		DurationSec: snap.DurationSec,
	}
	if tr.Title == "" || tr.Artist == "" {
		return track.Track{}, false
	}
	return tr, true
}

// isNewTrack reports whether the snapshot starts a new session: no
// session exists, the track differs, or the source's own update token
// changed for the same track. The token comparison catches same-named
// replays such as repeat-one.
func (m *Monitor) isNewTrack(tr track.Track, updateToken string) bool {
	if m.session == nil {
		return true
	}
	if !m.session.track.Equal(tr) {
		return true
	}
	return m.session.updateToken != updateToken
}
