// Package listenbrainz provides the ListenBrainz backend service adapter.
// Reference: https://listenbrainz.readthedocs.io/en/latest/users/api/
package listenbrainz

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/domain/track"
)

const submitterName = "scrobd"

// Config represents ListenBrainz service configuration.
// Settings come from the service entry in the config file; multiple
// instances (e.g. the public API plus a self-hosted Maloja) may coexist.
type Config struct {
	Name   string `mapstructure:"name" default:"Primary"`
	Token  string `mapstructure:"token" validate:"required"`
	APIURL string `mapstructure:"api_url" validate:"required,url"`
}

// Service submits playing-now updates and listens to one ListenBrainz
// instance.
type Service struct {
	name       string
	token      string
	baseURL    string
	httpClient *http.Client
}

// listenPayload is one entry of a submit-listens request.
type listenPayload struct {
	ListenedAt    int64         `json:"listened_at,omitempty"`
	TrackMetadata trackMetadata `json:"track_metadata"`
}

type trackMetadata struct {
	ArtistName     string          `json:"artist_name"`
	TrackName      string          `json:"track_name"`
	ReleaseName    string          `json:"release_name,omitempty"`
	AdditionalInfo *additionalInfo `json:"additional_info,omitempty"`
}

type additionalInfo struct {
	DurationMs      uint64 `json:"duration_ms,omitempty"`
	SubmissionApp   string `json:"submission_client,omitempty"`
	MediaPlayerName string `json:"media_player,omitempty"`
}

// submitRequest is the body of POST /1/submit-listens.
type submitRequest struct {
	ListenType string          `json:"listen_type"`
	Payload    []listenPayload `json:"payload"`
}

// apiError represents an error response from the ListenBrainz API.
type apiError struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// New creates a new ListenBrainz service.
func New(cfg Config) (*Service, error) {
	if cfg.Token == "" {
		return nil, errors.New("listenbrainz token is required")
	}
	if cfg.APIURL == "" {
		return nil, errors.New("listenbrainz api_url is required")
	}
	name := cfg.Name
	if name == "" {
		name = "Primary"
	}

	return &Service{
		name:       name,
		token:      cfg.Token,
		baseURL:    cfg.APIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ID identifies the instance in logs and dispatch outcomes.
func (s *Service) ID() string {
	return "listenbrainz:" + s.name
}

// ValidateToken checks the configured token against the instance.
// Reference: GET /1/validate-token
func (s *Service) ValidateToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/1/validate-token", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Token "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	var result struct {
		Valid    bool   `json:"valid"`
		UserName string `json:"user_name"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return errors.Wrapf(err, "unexpected response (status %d)", resp.StatusCode)
	}
	if !result.Valid {
		return errors.Newf("token rejected by %s", s.baseURL)
	}

	zlog.Debug().Msgf("ListenBrainz (%s): token valid for user %s", s.name, result.UserName)
	return nil
}

// UpdateNowPlaying sends a playing-now update. Playing-now submissions
// carry no timestamp.
func (s *Service) UpdateNowPlaying(ctx context.Context, t track.Track) error {
	return s.submit(ctx, "playing_now", t, nil)
}

// SubmitListen records a single listen stamped with the session start.
func (s *Service) SubmitListen(ctx context.Context, t track.Track, listenedAt time.Time) error {
	return s.submit(ctx, "single", t, &listenedAt)
}

// submit posts one listen payload. Reference: POST /1/submit-listens
func (s *Service) submit(ctx context.Context, listenType string, t track.Track, listenedAt *time.Time) error {
	payload := listenPayload{
		TrackMetadata: trackMetadata{
			ArtistName:  t.Artist,
			TrackName:   t.Title,
			ReleaseName: t.Album,
			AdditionalInfo: &additionalInfo{
				DurationMs:    t.DurationSec * 1000,
				SubmissionApp: submitterName,
			},
		},
	}
	if listenedAt != nil {
		payload.ListenedAt = listenedAt.Unix()
	}

	body, err := json.Marshal(submitRequest{
		ListenType: listenType,
		Payload:    []listenPayload{payload},
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/1/submit-listens", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Token "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return errors.Newf("listenbrainz API error %d: %s", apiErr.Code, apiErr.Error)
		}
		return errors.Newf("listenbrainz returned status %d", resp.StatusCode)
	}

	zlog.Debug().Msgf("ListenBrainz (%s): %s submitted for %s", s.name, listenType, t)
	return nil
}
