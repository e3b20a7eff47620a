// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultListenBrainzURL is the public ListenBrainz API endpoint.
const DefaultListenBrainzURL = "https://api.listenbrainz.org"

// Config represents the application configuration.
type Config struct {
	// RefreshInterval is the poll interval in seconds.
	RefreshInterval int `yaml:"refresh_interval" default:"5" validate:"gte=1,lte=3600"`
	// ScrobbleThreshold is the percentage of a track's duration that must
	// play before the listen counts.
	ScrobbleThreshold int `yaml:"scrobble_threshold" default:"50" validate:"gte=1,lte=100"`

	Cleanup      CleanupConfig      `yaml:"cleanup"`
	AppFiltering AppFilteringConfig `yaml:"app_filtering"`
	Source       SourceConfig       `yaml:"source"`
	Services     []ServiceConfig    `yaml:"services" validate:"dive"`

	// envRestores undoes the environment overrides on a copy at save
	// time, so secrets injected via env never reach the file.
	envRestores []func(*Config)
}

// CleanupConfig represents text cleanup configuration.
type CleanupConfig struct {
	Enabled  bool     `yaml:"enabled" default:"true"`
	Patterns []string `yaml:"patterns"`
}

// SetDefaults fills the default noise patterns when none are configured.
func (c *CleanupConfig) SetDefaults() {
	if c.Patterns == nil {
		c.Patterns = []string{
			`\s*\[Explicit\]`,
			`\s*\[Clean\]`,
			`\s*\(Explicit\)`,
			`\s*\(Clean\)`,
			`\s*- Explicit`,
			`\s*- Clean`,
		}
	}
}

// AppFilteringConfig represents source application filtering configuration.
type AppFilteringConfig struct {
	// PromptForNewApps asks the user before scrobbling from an unlisted app.
	PromptForNewApps bool `yaml:"prompt_for_new_apps" default:"true"`
	// ScrobbleUnknown scrobbles playback from apps that report no identifier.
	ScrobbleUnknown bool     `yaml:"scrobble_unknown" default:"true"`
	AllowedApps     []string `yaml:"allowed_apps"`
	IgnoredApps     []string `yaml:"ignored_apps"`
}

// SourceConfig selects the now-playing source.
type SourceConfig struct {
	Type    string              `yaml:"type" default:"mpris" validate:"oneof=mpris spotify"`
	Spotify SpotifySourceConfig `yaml:"spotify"`
}

// SpotifySourceConfig represents Spotify API credentials for the
// currently-playing source. Required only when the source type is spotify.
type SpotifySourceConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// ServiceConfig represents one backend listen-tracking service.
// Settings are decoded per service type at construction time.
type ServiceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=lastfm listenbrainz"`
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings"`
}

// DefaultPath returns the default config file location under the user
// config directory, creating parent directories as needed.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("scrobd", "config.yaml"))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve config path")
	}
	return path, nil
}

// Default returns the built-in configuration, including disabled example
// service entries so a freshly written file documents itself.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	cfg.Services = []ServiceConfig{
		{
			Type:    "lastfm",
			Enabled: false,
			Settings: map[string]any{
				"api_key":     "",
				"api_secret":  "",
				"session_key": "",
			},
		},
		{
			Type:    "listenbrainz",
			Enabled: false,
			Settings: map[string]any{
				"name":    "Primary",
				"token":   "",
				"api_url": DefaultListenBrainzURL,
			},
		},
	}

	return &cfg, nil
}

// Load loads configuration from a YAML file. A missing file is not an
// error: the default configuration is written there and returned.
// Environment variables take precedence over file values for secrets.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zlog.Info().Msgf("Config file not found, creating default at %s", path)
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Unmarshal over a fully defaulted config so absent fields keep
	// their defaults while explicit false/zero values survive.
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// Save writes the configuration to the given path. Values that were
// overridden from the environment are reverted to what the file held,
// so the written file never gains env-injected secrets.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c.withoutEnvOverrides())
	if err != nil {
		return errors.Wrap(err, "failed to serialize config")
	}

	// The file holds API secrets.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	zlog.Info().Msgf("Config saved to %s", path)
	return nil
}

// overrideFromEnv overrides config values with environment variables.
// Each override records how to undo itself for withoutEnvOverrides.
func (c *Config) overrideFromEnv() {
	for i := range c.Services {
		switch c.Services[i].Type {
		case "lastfm":
			c.overrideSetting(i, "api_key", "LASTFM_API_KEY")
			c.overrideSetting(i, "api_secret", "LASTFM_API_SECRET")
			c.overrideSetting(i, "session_key", "LASTFM_SESSION_KEY")
		case "listenbrainz":
			c.overrideSetting(i, "token", "LISTENBRAINZ_TOKEN")
		}
	}

	c.overrideSpotifyField(&c.Source.Spotify.ClientID, "SPOTIFY_CLIENT_ID",
		func(out *Config) *string { return &out.Source.Spotify.ClientID })
	c.overrideSpotifyField(&c.Source.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET",
		func(out *Config) *string { return &out.Source.Spotify.ClientSecret })
	c.overrideSpotifyField(&c.Source.Spotify.RefreshToken, "SPOTIFY_REFRESH_TOKEN",
		func(out *Config) *string { return &out.Source.Spotify.RefreshToken })
}

func (c *Config) overrideSetting(i int, key, envVar string) {
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	var prev any
	had := false
	if c.Services[i].Settings != nil {
		prev, had = c.Services[i].Settings[key]
	}
	if c.Services[i].Settings == nil {
		c.Services[i].Settings = make(map[string]any)
	}
	c.Services[i].Settings[key] = v
	c.envRestores = append(c.envRestores, func(out *Config) {
		if had {
			out.Services[i].Settings[key] = prev
		} else {
			delete(out.Services[i].Settings, key)
		}
	})
}

func (c *Config) overrideSpotifyField(field *string, envVar string, target func(*Config) *string) {
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	prev := *field
	*field = v
	c.envRestores = append(c.envRestores, func(out *Config) {
		*target(out) = prev
	})
}

// withoutEnvOverrides returns a copy with the environment overrides
// undone. Service settings maps are cloned first so the runtime config
// keeps its env-injected values.
func (c *Config) withoutEnvOverrides() *Config {
	if len(c.envRestores) == 0 {
		return c
	}

	out := *c
	out.Services = make([]ServiceConfig, len(c.Services))
	copy(out.Services, c.Services)
	for i := range out.Services {
		if c.Services[i].Settings == nil {
			continue
		}
		settings := make(map[string]any, len(c.Services[i].Settings))
		for k, v := range c.Services[i].Settings {
			settings[k] = v
		}
		out.Services[i].Settings = settings
	}

	for _, restore := range c.envRestores {
		restore(&out)
	}
	return &out
}

// normalize fills derivable values after unmarshal.
func (c *Config) normalize() {
	for i := range c.Services {
		if c.Services[i].Type != "listenbrainz" {
			continue
		}
		if c.Services[i].Settings == nil {
			c.Services[i].Settings = make(map[string]any)
		}
		if url, _ := c.Services[i].Settings["api_url"].(string); url == "" {
			c.Services[i].Settings["api_url"] = DefaultListenBrainzURL
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateAppFiltering(); err != nil {
		return err
	}

	if err := c.validateServices(); err != nil {
		return err
	}

	if c.Source.Type == "spotify" {
		s := c.Source.Spotify
		if s.ClientID == "" || s.ClientSecret == "" || s.RefreshToken == "" {
			return errors.New("spotify source requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}

// validateAppFiltering rejects apps listed as both allowed and ignored.
// The conflict must fail loudly at load time instead of being silently
// resolved one way or the other mid-run.
func (c *Config) validateAppFiltering() error {
	ignored := make(map[string]struct{}, len(c.AppFiltering.IgnoredApps))
	for _, id := range c.AppFiltering.IgnoredApps {
		ignored[id] = struct{}{}
	}
	for _, id := range c.AppFiltering.AllowedApps {
		if _, ok := ignored[id]; ok {
			return errors.Newf("app %q appears in both allowed_apps and ignored_apps", id)
		}
	}
	return nil
}

// validateServices enforces per-type constraints on service entries.
func (c *Config) validateServices() error {
	lastfmCount := 0
	for i, svc := range c.Services {
		if !svc.Enabled {
			continue
		}
		if svc.Type == "lastfm" {
			lastfmCount++
			if lastfmCount > 1 {
				return errors.Newf("at most one lastfm service may be enabled (entry %d)", i)
			}
		}
	}
	return nil
}

// EnabledServices returns the enabled service entries.
func (c *Config) EnabledServices() []ServiceConfig {
	var enabled []ServiceConfig
	for _, svc := range c.Services {
		if svc.Enabled {
			enabled = append(enabled, svc)
		}
	}
	return enabled
}

// SetAppLists replaces the persisted allow/ignore lists. Used to write
// interactive filtering decisions back to the config file.
func (c *Config) SetAppLists(allowed, ignored []string) {
	c.AppFiltering.AllowedApps = allowed
	c.AppFiltering.IgnoredApps = ignored
}
