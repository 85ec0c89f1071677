package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Datta-sai-vvn/StormAlert/internal/alerting"
	"github.com/Datta-sai-vvn/StormAlert/internal/market"
	"github.com/Datta-sai-vvn/StormAlert/internal/storage"
)

// Sink carries a surviving alert out of the pipeline: audit persistence
// first, then the external notifier. The audit write must succeed before
// anything is sent, so a crash between the two never loses the trail.
type Sink struct {
	store         storage.AlertStore
	notifier      alerting.Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
}

// NewSink constructs a dispatch sink. Both store and notifier may be nil;
// a nil store makes persistence a no-op success, a nil notifier skips the
// hand-off.
func NewSink(store storage.AlertStore, notifier alerting.Notifier, notifyTimeout time.Duration, logger zerolog.Logger) *Sink {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &Sink{
		store:         store,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch persists the audit record and forwards the alert. A persistence
// failure is returned so the caller can treat the dispatch as never having
// happened; a notifier failure is logged only, since the alert is already
// audited and retry policy lives with the notifier.
func (s *Sink) Dispatch(ctx context.Context, alert market.Alert, subscriber string) error {
	if s.store != nil {
		if _, err := s.store.InsertAlert(ctx, storage.RecordFromAlert(alert, subscriber)); err != nil {
			return fmt.Errorf("persist alert: %w", err)
		}
	}

	if s.notifier == nil {
		return nil
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(notifyCtx, alert, subscriber); err != nil {
		s.logger.Error().Err(err).
			Str("instrument", alert.Instrument).
			Str("subscriber", subscriber).
			Str("kind", string(alert.Kind)).
			Msg("notifier failed; alert remains audited")
	}
	return nil
}
