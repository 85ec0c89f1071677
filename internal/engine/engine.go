package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Datta-sai-vvn/StormAlert/internal/alerting"
	"github.com/Datta-sai-vvn/StormAlert/internal/cooldown"
	"github.com/Datta-sai-vvn/StormAlert/internal/history"
	"github.com/Datta-sai-vvn/StormAlert/internal/market"
	"github.com/Datta-sai-vvn/StormAlert/internal/pricecache"
	"github.com/Datta-sai-vvn/StormAlert/internal/registry"
)

// ErrClosed is returned by OnTick after the engine has been shut down.
var ErrClosed = errors.New("engine: closed")

// Options tune the pipeline.
type Options struct {
	QueueSize       int
	DispatchWorkers int
	CooldownTTL     time.Duration
}

type dispatchJob struct {
	alert      market.Alert
	subscriber string
}

type instrumentWorker struct {
	queue chan market.Tick
}

// Engine is the tick-to-alert pipeline. Ticks for one instrument are
// processed in arrival order by a dedicated worker; instruments run in
// parallel. Evaluation is fast and in-memory; dispatch (persist + notify)
// is delegated to a worker pool so slow I/O never stalls ingestion.
type Engine struct {
	history  *history.Store
	cache    pricecache.Cache
	registry registry.Registry
	ledger   cooldown.Ledger
	sink     *Sink
	opts     Options
	logger   zerolog.Logger

	baseCtx   context.Context
	cancelAll context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	workers map[string]*instrumentWorker
	tickWG  sync.WaitGroup

	dispatchCh chan dispatchJob
	dispatchWG sync.WaitGroup

	rejected uint64
	dropped  uint64
}

// New constructs and starts the pipeline.
func New(opts Options, hist *history.Store, cache pricecache.Cache, reg registry.Registry, ledger cooldown.Ledger, sink *Sink, logger zerolog.Logger) *Engine {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.DispatchWorkers <= 0 {
		opts.DispatchWorkers = 4
	}
	if opts.CooldownTTL <= 0 {
		opts.CooldownTTL = cooldown.DefaultTTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		history:    hist,
		cache:      cache,
		registry:   reg,
		ledger:     ledger,
		sink:       sink,
		opts:       opts,
		logger:     logger.With().Str("component", "engine").Logger(),
		baseCtx:    ctx,
		cancelAll:  cancel,
		workers:    make(map[string]*instrumentWorker),
		dispatchCh: make(chan dispatchJob, opts.QueueSize),
	}

	for i := 0; i < opts.DispatchWorkers; i++ {
		e.dispatchWG.Add(1)
		go e.dispatchLoop()
	}
	return e
}

// OnTick is the sole ingestion entry point. Only validation errors surface
// to the caller; every later failure is absorbed with logging so one bad
// dispatch never blocks subsequent ticks.
func (e *Engine) OnTick(tick market.Tick) error {
	if err := tick.Validate(); err != nil {
		atomic.AddUint64(&e.rejected, 1)
		return err
	}
	if tick.Timestamp.IsZero() {
		tick.Timestamp = time.Now().UTC()
	}

	// The read lock is held across the enqueue so Close cannot tear down a
	// worker queue mid-send. Enqueueing never blocks, so the hold is short.
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}

	worker, ok := e.workers[tick.Instrument]
	if !ok {
		e.mu.RUnlock()
		worker = e.startWorker(tick.Instrument)
		e.mu.RLock()
		if e.closed {
			return ErrClosed
		}
	}

	// Newest-tick-wins: on a full queue the oldest entry is discarded, never
	// the incoming one, since the price cache only needs the latest anyway.
	for {
		select {
		case worker.queue <- tick:
			return nil
		default:
		}
		select {
		case <-worker.queue:
			atomic.AddUint64(&e.dropped, 1)
			e.logger.Warn().Str("instrument", tick.Instrument).Msg("tick queue full; dropped oldest")
		default:
		}
	}
}

func (e *Engine) startWorker(instrument string) *instrumentWorker {
	e.mu.Lock()
	defer e.mu.Unlock()

	if worker, ok := e.workers[instrument]; ok {
		return worker
	}
	worker := &instrumentWorker{queue: make(chan market.Tick, e.opts.QueueSize)}
	e.workers[instrument] = worker
	if !e.closed {
		e.tickWG.Add(1)
		go e.tickLoop(worker)
	}
	return worker
}

func (e *Engine) tickLoop(worker *instrumentWorker) {
	defer e.tickWG.Done()
	for tick := range worker.queue {
		e.process(tick)
	}
}

func (e *Engine) process(tick market.Tick) {
	ctx := e.baseCtx

	// History and cache update happen even with no watchers; the display
	// layer reads the cache independent of alerting.
	if err := e.history.Record(tick.Instrument, tick.Price, tick.Timestamp); err != nil {
		e.logger.Error().Err(err).Str("instrument", tick.Instrument).Msg("history record failed")
		return
	}
	if err := e.cache.Set(ctx, tick.Instrument, pricecache.Entry{
		Price:         tick.Price,
		Timestamp:     tick.Timestamp,
		ChangePercent: tick.ChangePercent,
	}); err != nil {
		e.logger.Error().Err(err).Str("instrument", tick.Instrument).Msg("price cache update failed")
	}

	watchers, err := e.registry.WatchersOf(ctx, tick.Instrument)
	if err != nil {
		e.logger.Error().Err(err).Str("instrument", tick.Instrument).Msg("watcher lookup failed")
		return
	}
	if len(watchers) == 0 {
		return
	}

	snapshot := e.history.Read(tick.Instrument)

	for _, subscriber := range watchers {
		rule, err := e.registry.SettingsOf(ctx, subscriber)
		if err != nil {
			e.logger.Error().Err(err).Str("subscriber", subscriber).Msg("settings lookup failed")
			continue
		}

		for _, alert := range alerting.Evaluate(tick.Instrument, tick.Price, snapshot, rule, tick.Timestamp) {
			armed, err := e.ledger.TryArm(ctx, subscriber, alert.Instrument, alert.Kind, e.opts.CooldownTTL)
			if err != nil {
				e.logger.Error().Err(err).Str("subscriber", subscriber).Msg("cooldown check failed")
				continue
			}
			if !armed {
				// Suppressed; not an error.
				continue
			}

			select {
			case e.dispatchCh <- dispatchJob{alert: alert, subscriber: subscriber}:
			case <-e.baseCtx.Done():
				return
			}
		}
	}
}

func (e *Engine) dispatchLoop() {
	defer e.dispatchWG.Done()
	for job := range e.dispatchCh {
		if err := e.sink.Dispatch(e.baseCtx, job.alert, job.subscriber); err != nil {
			// The cooldown was armed optimistically before dispatch; a failed
			// audit write must count as never having happened.
			if disarmErr := e.ledger.Disarm(e.baseCtx, job.subscriber, job.alert.Instrument, job.alert.Kind); disarmErr != nil {
				e.logger.Error().Err(disarmErr).Str("subscriber", job.subscriber).Msg("cooldown rollback failed")
			}
			e.logger.Error().Err(err).
				Str("instrument", job.alert.Instrument).
				Str("subscriber", job.subscriber).
				Str("kind", string(job.alert.Kind)).
				Msg("alert dropped for this cycle")
			continue
		}

		e.logger.Info().
			Str("instrument", job.alert.Instrument).
			Str("subscriber", job.subscriber).
			Str("kind", string(job.alert.Kind)).
			Str("percent", job.alert.Percent.StringFixed(2)).
			Msg("alert dispatched")
	}
}

// Close drains the per-instrument workers, then the dispatch pool.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, worker := range e.workers {
		close(worker.queue)
	}
	e.mu.Unlock()

	e.tickWG.Wait()
	close(e.dispatchCh)
	e.dispatchWG.Wait()
	e.cancelAll()
}

// RejectedTicks reports how many ticks failed validation.
func (e *Engine) RejectedTicks() uint64 {
	return atomic.LoadUint64(&e.rejected)
}

// DroppedTicks reports how many queued ticks were discarded under pressure.
func (e *Engine) DroppedTicks() uint64 {
	return atomic.LoadUint64(&e.dropped)
}
