package app

import (
	"context"
	"errors"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/cooldown"
	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/feed"
	"github.com/Datta-sai-vvn/StormAlert/internal/history"
	"github.com/Datta-sai-vvn/StormAlert/internal/market"
	"github.com/Datta-sai-vvn/StormAlert/internal/pricecache"
	"github.com/Datta-sai-vvn/StormAlert/internal/registry"
)

// Simulate 运行一段模拟行情并走完整条告警管道。State is in-memory only;
// the audit store is used when the database is configured, so dispatched
// alerts land in the real trail.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Instruments) == 0 {
		return errors.New("at least one --instrument is required")
	}
	if opts.Subscriber == "" {
		opts.Subscriber = "simulated-user"
	}
	if opts.Duration <= 0 {
		opts.Duration = time.Minute
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	reg := registry.NewMemory()
	for _, instrument := range opts.Instruments {
		if err := reg.Watch(ctx, instrument, opts.Subscriber); err != nil {
			return err
		}
	}
	if err := reg.PutSettings(ctx, opts.Subscriber, market.DefaultRule()); err != nil {
		return err
	}

	hist := history.NewStore(a.Config.Engine.HistoryCap)
	sink := engine.NewSink(storeOrNil(store), a.newNotifier(), a.Config.Engine.NotifyTimeout, a.Logger)
	eng := engine.New(engine.Options{
		QueueSize:       a.Config.Engine.QueueSize,
		DispatchWorkers: a.Config.Engine.DispatchWorkers,
		CooldownTTL:     a.Config.Alerting.Cooldown,
	}, hist, pricecache.NewMemory(a.Config.Engine.CacheTTL), reg, cooldown.NewMemory(), sink, a.Logger)
	defer eng.Close()

	simulator := feed.NewSimulator(opts.Instruments, opts.Interval, opts.Seed, a.Logger)

	runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	err = simulator.Run(runCtx, eng.OnTick)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = nil
	}

	a.Logger.Info().
		Uint64("rejected", eng.RejectedTicks()).
		Uint64("dropped", eng.DroppedTicks()).
		Msg("simulation finished")
	return err
}
