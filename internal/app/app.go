package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/Datta-sai-vvn/StormAlert/internal/alerting"
	"github.com/Datta-sai-vvn/StormAlert/internal/config"
	"github.com/Datta-sai-vvn/StormAlert/internal/cooldown"
	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/history"
	"github.com/Datta-sai-vvn/StormAlert/internal/pricecache"
	"github.com/Datta-sai-vvn/StormAlert/internal/registry"
	"github.com/Datta-sai-vvn/StormAlert/internal/scheduler"
	"github.com/Datta-sai-vvn/StormAlert/internal/server"
	"github.com/Datta-sai-vvn/StormAlert/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// sharedState resolves the cache, registry, and ledger backends: redis when
// an address is configured, in-process otherwise.
func (a *App) sharedState() (pricecache.Cache, registry.Registry, cooldown.Ledger, func()) {
	if a.Config.Redis.Addr == "" {
		a.Logger.Info().Msg("redis.addr not configured; using in-memory state")
		return pricecache.NewMemory(a.Config.Engine.CacheTTL), registry.NewMemory(), cooldown.NewMemory(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	closer := func() { _ = client.Close() }
	return pricecache.NewRedis(client, a.Config.Engine.CacheTTL), registry.NewRedis(client), cooldown.NewRedis(client), closer
}

// Run executes the long-running alerting service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; audit persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	cache, reg, ledger, closeShared := a.sharedState()
	defer closeShared()

	hist := history.NewStore(a.Config.Engine.HistoryCap)
	sink := engine.NewSink(storeOrNil(store), a.newNotifier(), a.Config.Engine.NotifyTimeout, a.Logger)

	eng := engine.New(engine.Options{
		QueueSize:       a.Config.Engine.QueueSize,
		DispatchWorkers: a.Config.Engine.DispatchWorkers,
		CooldownTTL:     a.Config.Alerting.Cooldown,
	}, hist, cache, reg, ledger, sink, a.Logger)
	defer eng.Close()

	if store != nil {
		go a.runRetention(ctx, store)
	}

	srv := server.New(a.Config.Server, eng, hist, cache, storeOrNil(store), a.Logger)

	a.Logger.Info().Msg("starting alerting service")
	err = srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("alerting service stopped")
	return nil
}

// runRetention sweeps audit records older than the configured horizon.
func (a *App) runRetention(ctx context.Context, store *storage.Store) {
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Retention.Interval,
		AlignToStart: true,
	}, a.Logger)

	err := sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		cutoff := time.Now().UTC().Add(-a.Config.Retention.MaxAge)
		deleted, err := store.DeleteAlertsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if deleted > 0 {
			a.Logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("retention sweep removed old alerts")
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("retention loop terminated")
	}
}

// storeOrNil keeps a typed nil from leaking into the AlertStore interface.
func storeOrNil(store *storage.Store) storage.AlertStore {
	if store == nil {
		return nil
	}
	return store
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting the alert audit trail.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions configure the simulated feed run.
type SimulateOptions struct {
	Instruments []string
	Subscriber  string
	Interval    time.Duration
	Duration    time.Duration
	Seed        int64
}
