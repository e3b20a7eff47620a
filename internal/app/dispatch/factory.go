package dispatch

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/infra/config"
	"github.com/osa030/scrobd/internal/infra/lastfm"
	"github.com/osa030/scrobd/internal/infra/listenbrainz"
)

// NewServicesFromConfig builds the backend services from the enabled
// service entries. The set of service types is closed and config-driven.
func NewServicesFromConfig(cfgs []config.ServiceConfig) ([]Service, error) {
	var services []Service

	for i, sc := range cfgs {
		if !sc.Enabled {
			continue
		}

		var svc Service
		var err error
		switch sc.Type {
		case "lastfm":
			var c lastfm.Config
			if err = decodeSettings(sc.Settings, &c); err == nil {
				svc, err = lastfm.New(c)
			}

		case "listenbrainz":
			var c listenbrainz.Config
			if err = decodeSettings(sc.Settings, &c); err == nil {
				svc, err = listenbrainz.New(c)
			}

		default:
			return nil, errors.Newf("unsupported service type: %s (entry %d)", sc.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create service (entry %d, type %s)", i, sc.Type)
		}

		services = append(services, svc)
		zlog.Info().Msgf("Registered backend service: %s", svc.ID())
	}

	return services, nil
}

// decodeSettings maps a settings block onto a typed service config,
// applying defaults and validating required fields.
func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	return nil
}
