// Package app assembles the daemon: config, logging, stores, the remote
// client, the event feed and the swap engine, all running under one
// supervisor.
package app

import (
	"context"
	"fmt"
	"time"

	"mimicbot/internal/config"
	"mimicbot/internal/events"
	"mimicbot/internal/history"
	"mimicbot/internal/observability/pprof"
	"mimicbot/internal/remote"
	"mimicbot/internal/runtime/supervisor"
	"mimicbot/internal/storage"
	"mimicbot/internal/swap"
	logx "mimicbot/pkg/logx"
)

type App struct {
	cfgMgr *config.ConfigManager
	logSvc *logx.Service
	log    logx.Logger

	store storage.Store
	hist  *history.SQLiteRepo
	sw    *swap.Service

	sup *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewConfigManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(loggingFrom(cfg))
	mgr.SetLogger(log)
	mgr.SetValidator(func(_ context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	return &App{cfgMgr: mgr, logSvc: logSvc, log: log}, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log))

	timeout, err := config.ParseDurationOrDefault("remote.timeout", cfg.Remote.Timeout, 10*time.Second)
	if err != nil {
		return err
	}
	client := remote.New(remote.Config{
		Address:    cfg.Remote.Address,
		Port:       cfg.Remote.Port,
		Timeout:    timeout,
		RatePerSec: cfg.Remote.RatePerSec,
	}, a.log)

	store, err := storage.Open(storage.Config{
		Driver: cfg.Schedule.Store.Driver,
		Path:   cfg.Schedule.Store.Path,
	}, a.log)
	if err != nil {
		return fmt.Errorf("open schedule store: %w", err)
	}
	a.store = store

	hist, err := history.OpenSQLite(ctx, cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	a.hist = hist

	if cfg.EventsEnabled() {
		var prefixes []string
		if cfg.Events != nil {
			prefixes = cfg.Events.CommandPrefixes
		}
		port := cfg.Remote.Port
		if port == 0 {
			port = config.DefaultRemotePort
		}
		listener := events.New(events.Config{
			URL:             fmt.Sprintf("ws://%s:%d", cfg.Remote.Address, port),
			BotAccountID:    cfg.Bot.AccountID,
			CommandPrefixes: prefixes,
		}, hist, a.log)
		a.sup.GoRestart("events.feed", listener.Run)
	} else {
		a.log.Warn("event feed disabled; activity ranking depends on an externally fed history store")
	}

	resync, err := config.ParseDurationOrDefault("schedule.directory_resync", cfg.Schedule.DirectoryResync, 10*time.Minute)
	if err != nil {
		return err
	}
	retention, err := config.ParseDurationOrDefault("history.retention", cfg.History.Retention, 72*time.Hour)
	if err != nil {
		return err
	}

	a.sw = swap.New(swap.Deps{
		Log:       a.log,
		Store:     store,
		API:       client,
		Directory: client,
		History:   hist,
		Settings:  settingsFrom(cfg),
		Resync:    resync,
		Retention: retention,
	})
	if err := a.sw.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("start swap engine: %w", err)
	}

	if cfg.Debug != nil && cfg.Debug.Pprof.Enabled {
		dbg := pprof.New(pprof.Config{
			Enabled: true,
			Addr:    cfg.Debug.Pprof.Addr,
			Token:   cfg.Debug.Pprof.Token,
		}, a.log)
		a.sup.GoRestart("debug.pprof", dbg.Run)
	}

	// Hot reload: watch the config file and apply reloadable sections.
	a.sup.Go("config.watch", a.cfgMgr.Watch)
	updates := a.cfgMgr.Subscribe(4)
	a.sup.Go0("config.apply", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(c)
			}
		}
	})

	a.log.Info("mimicbot started",
		logx.String("remote", client.BaseURL()),
		logx.Bool("schedule_enabled", cfg.Schedule.Enabled))
	return nil
}

// applyConfig applies the reloadable sections: logging, interval window,
// lambda and identity. Remote endpoint and store paths need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logSvc.Apply(loggingFrom(cfg))
	a.sw.Apply(settingsFrom(cfg))
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	if a.sw != nil {
		if err := a.sw.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return firstErr
}

func loggingFrom(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func settingsFrom(cfg *config.Config) swap.Settings {
	min := cfg.Schedule.MinIntervalMinutes
	if min <= 0 {
		min = config.DefaultMinIntervalMinutes
	}
	max := cfg.Schedule.MaxIntervalMinutes
	if max <= 0 {
		max = config.DefaultMaxIntervalMinutes
	}
	lambda := cfg.Selection.Lambda
	if lambda <= 0 {
		lambda = config.DefaultLambda
	}
	return swap.Settings{
		Enabled:            cfg.Schedule.Enabled,
		MinIntervalMinutes: min,
		MaxIntervalMinutes: max,
		Lambda:             lambda,
		Identity: swap.Identity{
			AccountID: cfg.Bot.AccountID,
			Nickname:  cfg.Bot.Nickname,
			Aliases:   cfg.Bot.Aliases,
		},
	}
}
