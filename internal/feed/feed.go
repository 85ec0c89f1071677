package feed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// TickHandler consumes one generated observation.
type TickHandler func(tick market.Tick) error

// Simulator produces random-walk ticks for a fixed instrument set. It stands
// in for the real market feed, which lives outside this system.
type Simulator struct {
	instruments []string
	interval    time.Duration
	rng         *rand.Rand
	logger      zerolog.Logger

	prices map[string]decimal.Decimal
}

// NewSimulator seeds each instrument with a starting price around 100.
func NewSimulator(instruments []string, interval time.Duration, seed int64, logger zerolog.Logger) *Simulator {
	if interval <= 0 {
		interval = time.Second
	}
	rng := rand.New(rand.NewSource(seed))

	prices := make(map[string]decimal.Decimal, len(instruments))
	for _, instrument := range instruments {
		prices[instrument] = decimal.NewFromFloat(80 + rng.Float64()*40)
	}

	return &Simulator{
		instruments: instruments,
		interval:    interval,
		rng:         rng,
		logger:      logger.With().Str("component", "feed_simulator").Logger(),
		prices:      prices,
	}
}

// Run emits ticks until ctx is cancelled. Each step moves a price by up to
// ±1.5%, enough to trip default thresholds within a few minutes.
func (s *Simulator) Run(ctx context.Context, handler TickHandler) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Int("instruments", len(s.instruments)).Dur("interval", s.interval).Msg("simulated feed started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, instrument := range s.instruments {
			tick := s.next(instrument)
			if err := handler(tick); err != nil {
				s.logger.Warn().Err(err).Str("instrument", instrument).Msg("tick rejected")
			}
		}
	}
}

func (s *Simulator) next(instrument string) market.Tick {
	price := s.prices[instrument]
	movePct := decimal.NewFromFloat((s.rng.Float64() - 0.5) * 3.0)
	price = price.Add(price.Mul(movePct).Div(decimal.NewFromInt(100)))
	if !price.IsPositive() {
		price = decimal.NewFromFloat(0.05)
	}
	s.prices[instrument] = price

	return market.Tick{
		Instrument:    instrument,
		Price:         price,
		Timestamp:     time.Now().UTC(),
		ChangePercent: movePct,
	}
}
