// Package mpris provides the now-playing source for MPRIS-capable media
// players, polled over the D-Bus session bus.
package mpris

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/app/monitor"
)

const (
	busPrefix       = "org.mpris.MediaPlayer2."
	objectPath      = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	propsInterface  = "org.freedesktop.DBus.Properties"
)

// Source polls MPRIS players for their now-playing state. When several
// players are present the first one actively playing wins.
type Source struct {
	conn *dbus.Conn
}

// New connects to the session bus. The connection is private so closing
// the source does not tear down a bus connection shared with others.
func New() (*Source, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to authenticate with session bus")
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to register with session bus")
	}

	return &Source{conn: conn}, nil
}

// Close releases the bus connection.
func (s *Source) Close() error {
	return s.conn.Close()
}

// Current returns the latest snapshot, or nil when no MPRIS player is
// on the bus.
func (s *Source) Current(ctx context.Context) (*monitor.Snapshot, error) {
	players, err := s.listPlayers(ctx)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}

	var fallback *monitor.Snapshot
	for _, name := range players {
		snap, err := s.snapshot(ctx, name)
		if err != nil {
			zlog.Debug().Msgf("Failed to read player %s: %v", name, err)
			continue
		}
		if snap.IsPlaying {
			return snap, nil
		}
		if fallback == nil {
			fallback = snap
		}
	}

	if fallback == nil {
		return nil, errors.New("no MPRIS player answered")
	}
	return fallback, nil
}

// listPlayers returns the bus names of all MPRIS players.
func (s *Source) listPlayers(ctx context.Context) ([]string, error) {
	var names []string
	err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list bus names")
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, busPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

// snapshot reads one player's playback status and metadata.
func (s *Source) snapshot(ctx context.Context, busName string) (*monitor.Snapshot, error) {
	obj := s.conn.Object(busName, objectPath)

	var props map[string]dbus.Variant
	err := obj.CallWithContext(ctx, propsInterface+".GetAll", 0, playerInterface).Store(&props)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read properties of %s", busName)
	}

	snap := &monitor.Snapshot{
		SourceAppID: busName,
		IsPlaying:   variantString(props["PlaybackStatus"]) == "Playing",
	}

	meta, _ := props["Metadata"].Value().(map[string]dbus.Variant)
	if meta != nil {
		snap.Title = variantString(meta["xesam:title"])
		snap.Artist = variantStrings(meta["xesam:artist"])
		snap.Album = variantString(meta["xesam:album"])
		snap.DurationSec = variantMicros(meta["mpris:length"]) / 1_000_000
		snap.UpdateToken = trackID(meta["mpris:trackid"])
	}

	return snap, nil
}

// variantString extracts a string value, empty on any other type.
func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

// variantStrings joins a string-array value; some players report a
// plain string instead.
func variantStrings(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case []string:
		return strings.Join(val, ", ")
	case string:
		return val
	default:
		return ""
	}
}

// variantMicros extracts mpris:length, which players report with
// varying integer widths and signedness.
func variantMicros(v dbus.Variant) uint64 {
	switch val := v.Value().(type) {
	case int64:
		if val < 0 {
			return 0
		}
		return uint64(val)
	case uint64:
		return val
	case int32:
		if val < 0 {
			return 0
		}
		return uint64(val)
	case uint32:
		return uint64(val)
	case float64:
		if val < 0 {
			return 0
		}
		return uint64(val)
	default:
		return 0
	}
}

// trackID extracts mpris:trackid, an object path unique per playback.
func trackID(v dbus.Variant) string {
	switch val := v.Value().(type) {
	case dbus.ObjectPath:
		return string(val)
	case string:
		return val
	default:
		return ""
	}
}
