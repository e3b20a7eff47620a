// Package spotify provides a now-playing source backed by the Spotify
// Web API, for setups where no MPRIS player is available.
package spotify

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/scrobd/internal/app/monitor"
)

// sourceAppID identifies snapshots from this source in filter rules.
const sourceAppID = "spotify"

// Source polls the Spotify player endpoint for the current track.
type Source struct {
	client *spotify.Client
}

// Config represents Spotify API credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// New creates a Spotify source. The refresh token must have been issued
// with the currently-playing scopes.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
		),
	)

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	httpClient := auth.Client(ctx, token)
	client := spotify.New(httpClient)

	return &Source{client: client}, nil
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (s *Source) Close() error {
	return nil
}

// Current returns the latest snapshot, or nil when nothing is queued on
// the player.
func (s *Source) Current(ctx context.Context) (*monitor.Snapshot, error) {
	playing, err := s.client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get currently playing track")
	}
	if playing == nil || playing.Item == nil {
		return nil, nil
	}

	item := playing.Item
	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	return &monitor.Snapshot{
		Title:       item.Name,
		Artist:      strings.Join(artists, ", "),
		Album:       item.Album.Name,
		DurationSec: uint64(item.Duration) / 1000,
		IsPlaying:   playing.Playing,
		SourceAppID: sourceAppID,
		UpdateToken: string(item.ID),
	}, nil
}
