// Package lastfm provides the Last.fm backend service adapter.
package lastfm

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shkh/lastfm-go/lastfm"

	"github.com/osa030/scrobd/internal/domain/track"
)

// Config represents Last.fm service configuration.
// Settings come from the service entry in the config file.
type Config struct {
	APIKey     string `mapstructure:"api_key" validate:"required"`
	APISecret  string `mapstructure:"api_secret" validate:"required"`
	SessionKey string `mapstructure:"session_key" validate:"required"`
}

// Service submits now-playing updates and scrobbles to Last.fm.
type Service struct {
	api *lastfm.Api
}

// New creates a Last.fm service from an authenticated session.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("last.fm api_key and api_secret are required")
	}
	if cfg.SessionKey == "" {
		return nil, errors.New("last.fm session_key is required, run scrobd-lastfmauth to obtain one")
	}

	api := lastfm.New(cfg.APIKey, cfg.APISecret)
	api.SetSession(cfg.SessionKey)

	return &Service{api: api}, nil
}

// ID identifies the service in logs and dispatch outcomes.
func (s *Service) ID() string {
	return "lastfm"
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (s *Service) UpdateNowPlaying(_ context.Context, t track.Track) error {
	_, err := s.api.Track.UpdateNowPlaying(s.params(t, nil))
	if err != nil {
		return errors.Wrap(err, "update now playing")
	}
	return nil
}

// SubmitListen scrobbles a track play to Last.fm.
func (s *Service) SubmitListen(_ context.Context, t track.Track, listenedAt time.Time) error {
	ts := listenedAt.Unix()
	_, err := s.api.Track.Scrobble(s.params(t, &ts))
	if err != nil {
		return errors.Wrap(err, "scrobble")
	}
	return nil
}

func (s *Service) params(t track.Track, timestamp *int64) lastfm.P {
	params := lastfm.P{
		"artist": t.Artist,
		"track":  t.Title,
	}
	if t.Album != "" {
		params["album"] = t.Album
	}
	if t.DurationSec > 0 {
		params["duration"] = int(t.DurationSec)
	}
	if timestamp != nil {
		params["timestamp"] = *timestamp
	}
	return params
}
