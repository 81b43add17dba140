// Package app wires the service together: config, logging, storage, the
// timer service, both engines, and the Telegram transport.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"remindy/internal/config"
	"remindy/internal/logging"
	"remindy/internal/marketdata"
	"remindy/internal/notify"
	"remindy/internal/reminder"
	"remindy/internal/scheduler"
	"remindy/internal/stockalert"
	"remindy/internal/storage"
	"remindy/internal/timeparse"
	"remindy/internal/transport/telegram"
)

const alertTickName = "stockalert.tick"

type App struct {
	log  zerolog.Logger
	cfgm *config.Manager

	store   storage.Store
	sched   *scheduler.Service
	adapter *telegram.Adapter
	router  *Router

	alerts     *stockalert.Service
	reminders  *reminder.Service
	alertEvery time.Duration

	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Parse(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		},
	})

	cfgm := config.NewManager(cfgPath, log.With().Str("comp", "config").Logger())
	if _, err := cfgm.Load(); err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	defaultTimeout, err := config.ParseDurationField("scheduler.default_timeout", cfg.Scheduler.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	checkEvery, err := config.ParseDurationOrDefault("alerts.check_every", cfg.Alerts.CheckEvery, 5*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := config.ParseDurationOrDefault("alerts.fetch_timeout", cfg.Alerts.FetchTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With().Str("comp", "telegram").Logger())
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With().Str("comp", "storage").Logger())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		Workers:        cfg.Scheduler.Workers,
		DefaultTimeout: defaultTimeout,
		Timezone:       cfg.Scheduler.Timezone,
	}, log.With().Str("comp", "scheduler").Logger())

	notifier := notify.New(adapter, cfg.Notifier.RatePerSec, log.With().Str("comp", "notify").Logger())

	quotes := marketdata.NewNSE(marketdata.Config{
		BaseURL: cfg.Alerts.QuoteBaseURL,
		Timeout: fetchTimeout,
	}, log.With().Str("comp", "marketdata").Logger())

	reminders := reminder.New(
		reminder.Config{FireMissed: cfg.Reminders.FireMissed},
		store, sched, notifier, timeparse.New(true), sched.Location(),
		log.With().Str("comp", "reminder").Logger(),
	)
	alerts := stockalert.New(store, quotes, notifier,
		log.With().Str("comp", "stockalert").Logger())

	a := &App{
		log:        log.With().Str("comp", "app").Logger(),
		cfgm:       cfgm,
		store:      store,
		sched:      sched,
		adapter:    adapter,
		alerts:     alerts,
		reminders:  reminders,
		alertEvery: checkEvery,
	}
	a.router = NewRouter(reminders, alerts, a.log)
	adapter.SetHandler(a.router)
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sched.Start(ctx)

	// Startup reconciliation: re-arm still-pending reminders, then the
	// recurring evaluation tick, unconditionally.
	a.reminders.Reconcile(ctx, time.Now().UTC())
	if err := a.sched.AddInterval(alertTickName, a.alertEvery, 0, func(ctx context.Context) error {
		a.alerts.Tick(ctx)
		return nil
	}); err != nil {
		return err
	}

	a.adapter.Start(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go func() { _ = a.cfgm.Watch(watchCtx) }()
	go a.applyReloads(watchCtx)

	a.log.Info().Dur("alert_tick", a.alertEvery).Msg("remindy started")
	return nil
}

func (a *App) Stop(ctx context.Context) {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.adapter.Stop()
	a.sched.Stop(ctx)
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("store close failed")
	}
	a.log.Info().Msg("remindy stopped")
}

// applyReloads consumes published config snapshots and applies the
// hot-reloadable subset: log level and alert tick period. Everything else
// requires a restart.
func (a *App) applyReloads(ctx context.Context) {
	sub := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			zerolog.SetGlobalLevel(logging.ParseLevel(cfg.Logging.Level))

			every, err := config.ParseDurationOrDefault("alerts.check_every", cfg.Alerts.CheckEvery, 5*time.Minute)
			if err != nil {
				a.log.Warn().Err(err).Msg("reload: bad alert period; keeping current")
				continue
			}
			if every != a.alertEvery {
				if err := a.sched.AddInterval(alertTickName, every, 0, func(ctx context.Context) error {
					a.alerts.Tick(ctx)
					return nil
				}); err != nil {
					a.log.Warn().Err(err).Msg("reload: re-registering alert tick failed")
					continue
				}
				a.log.Info().Dur("from", a.alertEvery).Dur("to", every).Msg("alert tick period updated")
				a.alertEvery = every
			}
		}
	}
}
