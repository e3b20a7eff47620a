// Package dispatch fans scrobble and now-playing events out to the
// configured backend services, independently and with per-service retry.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/domain/track"
)

// Service is the uniform contract every backend adapter implements.
type Service interface {
	// ID identifies the service in logs and outcomes.
	ID() string
	// UpdateNowPlaying sends a non-authoritative "currently listening" notice.
	UpdateNowPlaying(ctx context.Context, t track.Track) error
	// SubmitListen records an authoritative listen.
	SubmitListen(ctx context.Context, t track.Track, listenedAt time.Time) error
}

// Policy bounds the retry loop around a single service call.
type Policy struct {
	MaxElapsed time.Duration // Total retry budget
	BaseDelay  time.Duration // First backoff interval
	Multiplier float64       // Backoff growth factor
}

// Default policies. A stale now-playing notice is low-value, a lost
// scrobble is permanent data loss, hence the asymmetric budgets.
var (
	DefaultNowPlayingPolicy = Policy{MaxElapsed: 10 * time.Second, BaseDelay: 500 * time.Millisecond, Multiplier: 2}
	DefaultScrobblePolicy   = Policy{MaxElapsed: 30 * time.Second, BaseDelay: time.Second, Multiplier: 2}
)

// newBackOff builds the exponential backoff for one service call.
func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = p.MaxElapsed
	return backoff.WithContext(b, ctx)
}

// Outcome is the per-service result of one dispatch.
type Outcome struct {
	ServiceID string
	Err       error
}

// Dispatcher delivers events to every configured service. One service's
// failure never prevents delivery to another; retry wraps the transport
// call to a single service, never the fan-out.
type Dispatcher struct {
	services         []Service
	nowPlayingPolicy Policy
	scrobblePolicy   Policy
}

// New creates a dispatcher over the given services.
func New(services []Service, nowPlayingPolicy, scrobblePolicy Policy) *Dispatcher {
	return &Dispatcher{
		services:         services,
		nowPlayingPolicy: nowPlayingPolicy,
		scrobblePolicy:   scrobblePolicy,
	}
}

// ServiceCount returns the number of configured services.
func (d *Dispatcher) ServiceCount() int {
	return len(d.services)
}

// DispatchNowPlaying sends a now-playing update to every service.
func (d *Dispatcher) DispatchNowPlaying(ctx context.Context, t track.Track) []Outcome {
	return d.fanOut(ctx, d.nowPlayingPolicy, func(ctx context.Context, svc Service) error {
		return svc.UpdateNowPlaying(ctx, t)
	})
}

// DispatchScrobble submits a listen to every service. The caller has
// already marked the session scrobbled; a failure here is logged and
// dropped, never re-queued.
func (d *Dispatcher) DispatchScrobble(ctx context.Context, t track.Track, listenedAt time.Time) []Outcome {
	return d.fanOut(ctx, d.scrobblePolicy, func(ctx context.Context, svc Service) error {
		return svc.SubmitListen(ctx, t, listenedAt)
	})
}

// fanOut invokes call once per service in parallel, each wrapped in its
// own retry loop, and collects the outcomes in service order.
func (d *Dispatcher) fanOut(ctx context.Context, policy Policy, call func(context.Context, Service) error) []Outcome {
	outcomes := make([]Outcome, len(d.services))

	var wg sync.WaitGroup
	for i, svc := range d.services {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()

			err := backoff.Retry(func() error {
				return call(ctx, svc)
			}, policy.newBackOff(ctx))

			if err != nil {
				zlog.Error().Msgf("Delivery to %s failed after retries: %v", svc.ID(), err)
			}
			outcomes[i] = Outcome{ServiceID: svc.ID(), Err: err}
		}(i, svc)
	}
	wg.Wait()

	return outcomes
}
