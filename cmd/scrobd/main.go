// Package main provides the scrobbler daemon entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/scrobd/internal/app/appfilter"
	"github.com/osa030/scrobd/internal/app/cleanup"
	"github.com/osa030/scrobd/internal/app/dispatch"
	"github.com/osa030/scrobd/internal/app/monitor"
	"github.com/osa030/scrobd/internal/app/status"
	"github.com/osa030/scrobd/internal/domain/track"
	"github.com/osa030/scrobd/internal/infra/config"
	"github.com/osa030/scrobd/internal/infra/listenbrainz"
	"github.com/osa030/scrobd/internal/infra/logger"
	"github.com/osa030/scrobd/internal/infra/mpris"
	"github.com/osa030/scrobd/internal/infra/notify"
	"github.com/osa030/scrobd/internal/infra/spotify"
)

var (
	app        = kingpin.New("scrobd", "Media play scrobbler daemon")
	configPath = app.Flag("config", "Path to config file (default: XDG config dir)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// validate command
	validateCmd = app.Command("validate", "Validate the config file and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			zlog.Fatal().Msgf("Failed to resolve config path: %v", err)
		}
	}

	zlog.Info().Msgf("Loading config from %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == validateCmd.FullCommand() {
		printConfigSummary(cfg)
		return
	}

	if err := run(cfg, path); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, cfgPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner := cleanup.New(cleanup.Config{
		Enabled:  cfg.Cleanup.Enabled,
		Patterns: cfg.Cleanup.Patterns,
	})

	// App decisions made at runtime are written back to the config file.
	store := newAppStore(cfg, cfgPath)

	services, err := dispatch.NewServicesFromConfig(cfg.EnabledServices())
	if err != nil {
		return fmt.Errorf("failed to create services: %w", err)
	}
	if len(services) == 0 {
		zlog.Warn().Msg("No listen service enabled; plays will be tracked but not delivered")
	}
	validateServiceTokens(ctx, services)

	dispatcher := dispatch.New(services, dispatch.DefaultNowPlayingPolicy, dispatch.DefaultScrobblePolicy)

	statusMgr := status.NewManager()
	defer statusMgr.Close()
	statusMgr.Subscribe(logStream{})

	notifier, err := notify.New()
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}
	defer func() {
		if err := notifier.Shutdown(); err != nil {
			zlog.Debug().Msgf("Notifier shutdown: %v", err)
		}
	}()

	source, err := newSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			zlog.Debug().Msgf("Source close: %v", err)
		}
	}()

	mon := monitor.New(cleaner, store, monitor.Config{
		ThresholdPercent: cfg.ScrobbleThreshold,
	})

	d := &daemon{
		monitor:    mon,
		source:     source,
		dispatcher: dispatcher,
		status:     statusMgr,
		notifier:   notifier,
		store:      store,
		prompts:    make(map[string]struct{}),
	}

	interval := time.Duration(cfg.RefreshInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	zlog.Info().Msgf("Watching for plays every %v", interval)

	for {
		select {
		case <-sigCh:
			zlog.Info().Msg("Received shutdown signal...")
			cancel()
			d.wg.Wait()
			zlog.Info().Msg("Daemon stopped")
			return nil
		case <-ticker.C:
			d.poll(ctx, interval)
		}
	}
}

// newAppStore builds the runtime app-filter store. User decisions are
// persisted straight back to the config file.
func newAppStore(cfg *config.Config, cfgPath string) *appfilter.Store {
	return appfilter.NewStore(
		cfg.AppFiltering.PromptForNewApps,
		cfg.AppFiltering.ScrobbleUnknown,
		cfg.AppFiltering.AllowedApps,
		cfg.AppFiltering.IgnoredApps,
		func(allowed, ignored []string) error {
			cfg.SetAppLists(allowed, ignored)
			return cfg.Save(cfgPath)
		},
	)
}

// logStream mirrors status events into the debug log.
type logStream struct{}

func (logStream) Send(e status.Event) error {
	zlog.Debug().Msgf("Status event: %s %s", e.Type, e.Track)
	return nil
}

// daemon ties the poll loop to the outbound side effects.
type daemon struct {
	monitor    *monitor.Monitor
	source     monitor.Source
	dispatcher *dispatch.Dispatcher
	status     *status.Manager
	notifier   notify.Notifier
	store      *appfilter.Store

	wg sync.WaitGroup

	mu      sync.Mutex
	prompts map[string]struct{} // apps with an open decision prompt
}

// poll runs one observe-decide-act cycle.
func (d *daemon) poll(ctx context.Context, interval time.Duration) {
	pollCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	snap, err := d.source.Current(pollCtx)
	if err != nil {
		// An unreadable source is indistinguishable from no media.
		zlog.Warn().Msgf("Failed to read now-playing state: %v", err)
		snap = nil
	}

	events := d.monitor.Poll(snap, time.Now())

	if events.UnknownApp != "" {
		d.promptForApp(events.UnknownApp)
	}

	if np := events.NowPlaying; np != nil {
		zlog.Info().Msgf("Now playing: %s", np.Track)
		d.status.Publish(status.Event{
			Type:  status.EventNowPlaying,
			Track: np.Track,
			At:    time.Now(),
		})

		tr := np.Track
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.reportFailures(d.dispatcher.DispatchNowPlaying(ctx, tr), tr)
		}()
	}

	if sc := events.Scrobble; sc != nil {
		zlog.Info().Msgf("Scrobbling: %s", sc.Track)
		d.status.Publish(status.Event{
			Type:  status.EventScrobbled,
			Track: sc.Track,
			At:    time.Now(),
		})
		d.notifyScrobbled(sc.Track.String())

		tr, listenedAt := sc.Track, sc.ListenedAt
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.reportFailures(d.dispatcher.DispatchScrobble(ctx, tr, listenedAt), tr)
		}()
	}

	if d.monitor.State() == monitor.StateEmpty {
		d.status.ClearNowPlaying()
	}
}

// promptForApp asks the user whether plays from an unknown app should be
// scrobbled. Dismissing the prompt leaves the app undecided, so it will
// be asked about again.
func (d *daemon) promptForApp(appID string) {
	d.mu.Lock()
	if _, open := d.prompts[appID]; open {
		d.mu.Unlock()
		return
	}
	d.prompts[appID] = struct{}{}
	d.mu.Unlock()

	id, err := d.notifier.Ask(notify.Notification{
		Title:   "New player detected",
		Body:    fmt.Sprintf("Scrobble plays from %s?", appID),
		Timeout: 0,
		Urgency: notify.UrgencyNormal,
		Actions: []notify.Action{
			{Key: "allow", Label: "Scrobble"},
			{Key: "ignore", Label: "Ignore"},
		},
	}, func(key string) {
		d.mu.Lock()
		delete(d.prompts, appID)
		d.mu.Unlock()

		switch key {
		case "allow":
			d.store.Remember(appID, true)
		case "ignore":
			d.store.Remember(appID, false)
		default:
			zlog.Debug().Msgf("Prompt for %s dismissed without a decision", appID)
		}
	})
	if err != nil {
		zlog.Warn().Msgf("Failed to prompt for app %s: %v", appID, err)
	}
	if err != nil || id == 0 {
		// Nothing will resolve the prompt; leave the app undecided so
		// a later poll can ask again.
		d.mu.Lock()
		delete(d.prompts, appID)
		d.mu.Unlock()
	}
}

// reportFailures publishes a delivery-failure event per failed backend.
func (d *daemon) reportFailures(outcomes []dispatch.Outcome, tr track.Track) {
	for _, outcome := range outcomes {
		if outcome.Err == nil {
			continue
		}
		d.status.Publish(status.Event{
			Type:      status.EventDeliveryFailed,
			ServiceID: outcome.ServiceID,
			At:        time.Now(),
		})
		d.notifier.Notify(notify.Notification{ //nolint:errcheck
			Title:   "Delivery failed",
			Body:    fmt.Sprintf("%s rejected %s", outcome.ServiceID, tr),
			Timeout: -1,
			Urgency: notify.UrgencyCritical,
		})
	}
}

// notifyScrobbled shows a transient desktop notification for a counted
// listen.
func (d *daemon) notifyScrobbled(line string) {
	if _, err := d.notifier.Notify(notify.Notification{
		Title:   "Scrobbled",
		Body:    line,
		Timeout: -1,
		Urgency: notify.UrgencyLow,
	}); err != nil {
		zlog.Debug().Msgf("Failed to send notification: %v", err)
	}
}

// newSource builds the configured now-playing source.
func newSource(ctx context.Context, cfg *config.Config) (monitor.Source, error) {
	switch cfg.Source.Type {
	case "spotify":
		return spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Source.Spotify.ClientID,
			ClientSecret: cfg.Source.Spotify.ClientSecret,
			RefreshToken: cfg.Source.Spotify.RefreshToken,
		})
	default:
		return mpris.New()
	}
}

// validateServiceTokens checks backend credentials where the service
// supports it. Failures are logged, not fatal; the daemon still runs.
func validateServiceTokens(ctx context.Context, services []dispatch.Service) {
	for _, svc := range services {
		lb, ok := svc.(*listenbrainz.Service)
		if !ok {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := lb.ValidateToken(checkCtx); err != nil {
			zlog.Warn().Msgf("Token check failed for %s: %v", svc.ID(), err)
		} else {
			zlog.Info().Msgf("Token valid for %s", svc.ID())
		}
		cancel()
	}
}

// printConfigSummary reports the validated config for the validate
// command.
func printConfigSummary(cfg *config.Config) {
	fmt.Println("Config OK")
	fmt.Printf("  source:   %s\n", cfg.Source.Type)
	fmt.Printf("  interval: %ds, threshold: %d%%\n", cfg.RefreshInterval, cfg.ScrobbleThreshold)
	enabled := cfg.EnabledServices()
	if len(enabled) == 0 {
		fmt.Println("  services: none enabled")
		return
	}
	for _, svc := range enabled {
		fmt.Printf("  service:  %s\n", svc.Type)
	}
}
