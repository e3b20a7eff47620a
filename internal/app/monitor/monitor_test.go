package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/scrobd/internal/app/appfilter"
	"github.com/osa030/scrobd/internal/app/cleanup"
)

// stubClassifier returns a fixed action, optionally per app ID.
type stubClassifier struct {
	action appfilter.Action
	perApp map[string]appfilter.Action
}

func (s *stubClassifier) Classify(appID string) appfilter.Action {
	if a, ok := s.perApp[appID]; ok {
		return a
	}
	return s.action
}

func newTestMonitor(threshold int) *Monitor {
	cleaner := cleanup.New(cleanup.Config{Enabled: false})
	return New(cleaner, &stubClassifier{action: appfilter.ActionAllow}, Config{ThresholdPercent: threshold})
}

func playingSnap(title, artist string, durationSec uint64) *Snapshot {
	return &Snapshot{
		Title:       title,
		Artist:      artist,
		Album:       "Test Album",
		DurationSec: durationSec,
		IsPlaying:   true,
		SourceAppID: "com.apple.Music",
		UpdateToken: "token-1",
	}
}

func TestMonitor_NewTrackEmitsNowPlaying(t *testing.T) {
	m := newTestMonitor(50)
	now := time.Now()

	events := m.Poll(playingSnap("Creep", "Radiohead", 200), now)

	require.NotNil(t, events.NowPlaying)
	assert.Equal(t, "Creep", events.NowPlaying.Track.Title)
	assert.Equal(t, "com.apple.Music", events.NowPlaying.SourceAppID)
	assert.Nil(t, events.Scrobble)
	assert.Equal(t, StateActiveUnscrobbled, m.State())
}

func TestMonitor_ThresholdCorrectness(t *testing.T) {
	tests := []struct {
		name        string
		durationSec uint64
		threshold   int
		scrobbleAt  time.Duration
	}{
		{
			name:        "half of a short track",
			durationSec: 200,
			threshold:   50,
			scrobbleAt:  100 * time.Second,
		},
		{
			name:        "ceiling caps a long track",
			durationSec: 600,
			threshold:   80,
			scrobbleAt:  240 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(tt.threshold)
			start := time.Now()
			snap := playingSnap("Song", "Artist", tt.durationSec)

			events := m.Poll(snap, start)
			require.NotNil(t, events.NowPlaying)

			// One second before the threshold: nothing.
			events = m.Poll(snap, start.Add(tt.scrobbleAt-time.Second))
			assert.Nil(t, events.Scrobble)
			assert.Equal(t, StateActiveUnscrobbled, m.State())

			// At the threshold: scrobble, stamped with the session start.
			events = m.Poll(snap, start.Add(tt.scrobbleAt))
			require.NotNil(t, events.Scrobble)
			assert.Equal(t, start, events.Scrobble.ListenedAt)
			assert.Equal(t, StateActiveScrobbled, m.State())
		})
	}
}

func TestMonitor_AtMostOneScrobblePerSession(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Song", "Artist", 100)

	m.Poll(snap, start)

	scrobbles := 0
	for i := 1; i <= 30; i++ {
		events := m.Poll(snap, start.Add(time.Duration(i)*10*time.Second))
		if events.Scrobble != nil {
			scrobbles++
		}
	}

	assert.Equal(t, 1, scrobbles)
	assert.Equal(t, StateActiveScrobbled, m.State())
}

func TestMonitor_ShortTrackNeverScrobbles(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Jingle", "Artist", 20)

	m.Poll(snap, start)
	events := m.Poll(snap, start.Add(time.Hour))

	assert.Nil(t, events.Scrobble)
	assert.Equal(t, StateActiveUnscrobbled, m.State())
}

func TestMonitor_UnknownDurationNeverScrobbles(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Stream", "Artist", 0)

	m.Poll(snap, start)
	events := m.Poll(snap, start.Add(time.Hour))

	assert.Nil(t, events.Scrobble)
}

func TestMonitor_TrackChangeResetsEligibility(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snapA := playingSnap("Track A", "Artist", 100)

	m.Poll(snapA, start)
	events := m.Poll(snapA, start.Add(60*time.Second))
	require.NotNil(t, events.Scrobble)
	assert.Equal(t, StateActiveScrobbled, m.State())

	snapB := playingSnap("Track B", "Artist", 100)
	snapB.UpdateToken = "token-2"
	events = m.Poll(snapB, start.Add(70*time.Second))

	require.NotNil(t, events.NowPlaying)
	assert.Equal(t, "Track B", events.NowPlaying.Track.Title)
	assert.Nil(t, events.Scrobble)
	assert.Equal(t, StateActiveUnscrobbled, m.State())

	// The new session scrobbles on its own clock.
	events = m.Poll(snapB, start.Add(70*time.Second).Add(50*time.Second))
	require.NotNil(t, events.Scrobble)
	assert.Equal(t, "Track B", events.Scrobble.Track.Title)
}

func TestMonitor_TokenChangeStartsNewSession(t *testing.T) {
	// Repeat-one: same track fields, new source token.
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Loop", "Artist", 100)

	m.Poll(snap, start)
	events := m.Poll(snap, start.Add(60*time.Second))
	require.NotNil(t, events.Scrobble)

	replay := *snap
	replay.UpdateToken = "token-replay"
	events = m.Poll(&replay, start.Add(110*time.Second))

	require.NotNil(t, events.NowPlaying)
	assert.Equal(t, StateActiveUnscrobbled, m.State())
}

func TestMonitor_PausePreservesSession(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Song", "Artist", 100)

	m.Poll(snap, start)

	paused := *snap
	paused.IsPlaying = false
	events := m.Poll(&paused, start.Add(10*time.Second))
	assert.Nil(t, events.NowPlaying)
	assert.Nil(t, events.Scrobble)
	assert.Equal(t, StateActiveUnscrobbled, m.State())

	// Resume continues the same session; no fresh now-playing event and
	// the scrobble clock keeps counting from the original start.
	events = m.Poll(snap, start.Add(50*time.Second))
	assert.Nil(t, events.NowPlaying)
	require.NotNil(t, events.Scrobble)
	assert.Equal(t, start, events.Scrobble.ListenedAt)
}

func TestMonitor_AbsentSnapshotDestroysSession(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Song", "Artist", 100)

	m.Poll(snap, start)
	assert.Equal(t, StateActiveUnscrobbled, m.State())

	events := m.Poll(nil, start.Add(10*time.Second))
	assert.Nil(t, events.NowPlaying)
	assert.Equal(t, StateEmpty, m.State())

	// The same track afterwards is a brand-new session.
	events = m.Poll(snap, start.Add(20*time.Second))
	require.NotNil(t, events.NowPlaying)
}

func TestMonitor_MissingTitleOrArtistIsNoOp(t *testing.T) {
	m := newTestMonitor(50)
	now := time.Now()

	events := m.Poll(playingSnap("", "Artist", 100), now)
	assert.Nil(t, events.NowPlaying)
	assert.Equal(t, StateEmpty, m.State())

	events = m.Poll(playingSnap("Song", "", 100), now)
	assert.Nil(t, events.NowPlaying)
	assert.Equal(t, StateEmpty, m.State())
}

func TestMonitor_IgnoredAppIsNoOp(t *testing.T) {
	cleaner := cleanup.New(cleanup.Config{Enabled: false})
	m := New(cleaner, &stubClassifier{action: appfilter.ActionIgnore}, Config{ThresholdPercent: 50})

	events := m.Poll(playingSnap("Song", "Artist", 100), time.Now())
	assert.Nil(t, events.NowPlaying)
	assert.Empty(t, events.UnknownApp)
	assert.Equal(t, StateEmpty, m.State())
}

func TestMonitor_AskUserDefersWithoutSessionMutation(t *testing.T) {
	cleaner := cleanup.New(cleanup.Config{Enabled: false})
	classifier := &stubClassifier{action: appfilter.ActionAskUser}
	m := New(cleaner, classifier, Config{ThresholdPercent: 50})

	start := time.Now()
	snap := playingSnap("Song", "Artist", 100)

	events := m.Poll(snap, start)
	assert.Equal(t, "com.apple.Music", events.UnknownApp)
	assert.Nil(t, events.NowPlaying)
	assert.Equal(t, StateEmpty, m.State())

	// Once the user allows the app, the same track is picked up with a
	// fresh session clock; the deferred event is not lost.
	classifier.action = appfilter.ActionAllow
	events = m.Poll(snap, start.Add(30*time.Second))
	require.NotNil(t, events.NowPlaying)
	assert.Equal(t, StateActiveUnscrobbled, m.State())
}

func TestMonitor_CleanupAppliedToTrackIdentity(t *testing.T) {
	cleaner := cleanup.New(cleanup.Config{
		Enabled:  true,
		Patterns: []string{`\s*\[Explicit\]`},
	})
	m := New(cleaner, &stubClassifier{action: appfilter.ActionAllow}, Config{ThresholdPercent: 50})

	start := time.Now()
	snapRaw := playingSnap("Song [Explicit]", "Artist", 100)
	snapClean := playingSnap("Song", "Artist", 100)

	m.Poll(snapRaw, start)

	// A snapshot that differs only in the stripped marker is the same
	// track, not a session replacement.
	events := m.Poll(snapClean, start.Add(5*time.Second))
	assert.Nil(t, events.NowPlaying)
	assert.Equal(t, StateActiveUnscrobbled, m.State())
}

func TestMonitor_ElapsedFlooredAtZero(t *testing.T) {
	m := newTestMonitor(50)
	start := time.Now()
	snap := playingSnap("Song", "Artist", 100)

	m.Poll(snap, start)

	// A clock that jumps backwards must not underflow into a scrobble.
	events := m.Poll(snap, start.Add(-time.Hour))
	assert.Nil(t, events.Scrobble)
}
