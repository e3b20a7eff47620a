package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/scrobd/internal/infra/config"
)

func TestNewServicesFromConfig(t *testing.T) {
	cfgs := []config.ServiceConfig{
		{
			Type:    "lastfm",
			Enabled: true,
			Settings: map[string]any{
				"api_key":     "key",
				"api_secret":  "secret",
				"session_key": "session",
			},
		},
		{
			Type:    "listenbrainz",
			Enabled: true,
			Settings: map[string]any{
				"name":    "Primary",
				"token":   "token",
				"api_url": "https://api.listenbrainz.org",
			},
		},
		{
			Type:    "listenbrainz",
			Enabled: false,
			Settings: map[string]any{
				"token":   "unused",
				"api_url": "https://maloja.example",
			},
		},
	}

	services, err := NewServicesFromConfig(cfgs)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "lastfm", services[0].ID())
	assert.Equal(t, "listenbrainz:Primary", services[1].ID())
}

func TestNewServicesFromConfig_MissingRequiredSetting(t *testing.T) {
	cfgs := []config.ServiceConfig{
		{
			Type:    "listenbrainz",
			Enabled: true,
			Settings: map[string]any{
				"api_url": "https://api.listenbrainz.org",
			},
		},
	}

	_, err := NewServicesFromConfig(cfgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}

func TestNewServicesFromConfig_UnsupportedType(t *testing.T) {
	cfgs := []config.ServiceConfig{
		{Type: "librefm", Enabled: true},
	}

	_, err := NewServicesFromConfig(cfgs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported service type")
}

func TestNewServicesFromConfig_Empty(t *testing.T) {
	services, err := NewServicesFromConfig(nil)
	require.NoError(t, err)
	assert.Empty(t, services)
}
