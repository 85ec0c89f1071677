package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoInstrument indicates a tick arrived without an instrument identifier.
	ErrNoInstrument = errors.New("market: instrument not specified")
	// ErrInvalidPrice indicates a tick carried a zero or negative price.
	ErrInvalidPrice = errors.New("market: price must be positive")
)

// AlertKind classifies the direction of a triggered alert.
type AlertKind string

const (
	// KindDip fires when price falls below the retained maximum.
	KindDip AlertKind = "DIP"
	// KindSpike fires when price rises above the windowed minimum.
	KindSpike AlertKind = "SPIKE"
)

// Algorithm names identify the evaluator that produced an alert.
const (
	AlgoTrailing = "trailing"
	AlgoRolling  = "rolling_window"
)

// Tick is one price observation for an instrument, as delivered by the feed.
type Tick struct {
	Instrument    string          `json:"instrument_token"`
	Price         decimal.Decimal `json:"last_price"`
	Timestamp     time.Time       `json:"timestamp"`
	ChangePercent decimal.Decimal `json:"change,omitempty"`
}

// Validate rejects malformed ticks before any pipeline state is touched.
func (t Tick) Validate() error {
	if t.Instrument == "" {
		return ErrNoInstrument
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidPrice, t.Price)
	}
	return nil
}

// PricePoint is the trimmed projection of a tick kept in history.
type PricePoint struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Alert is the output of an evaluator, before subscriber enrichment.
type Alert struct {
	Kind       AlertKind       `json:"type"`
	Instrument string          `json:"instrument_token"`
	Percent    decimal.Decimal `json:"percent"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp"`
	Algorithm  string          `json:"algorithm"`
}

// TrailingRule configures dip detection against the retained maximum.
type TrailingRule struct {
	Enabled          bool            `json:"enabled"`
	ThresholdPercent decimal.Decimal `json:"threshold"`
}

// RollingRule configures spike detection within a trailing time window.
type RollingRule struct {
	Enabled          bool            `json:"enabled"`
	ThresholdPercent decimal.Decimal `json:"threshold"`
	WindowMinutes    int             `json:"period"`
}

// AlertRule is a subscriber's evaluation configuration. Both variants may be
// enabled at once (hybrid mode).
type AlertRule struct {
	Trailing TrailingRule `json:"trailing"`
	Rolling  RollingRule  `json:"rolling_window"`
}

// DefaultRule is applied when a subscriber has no stored settings.
func DefaultRule() AlertRule {
	return AlertRule{
		Trailing: TrailingRule{
			Enabled:          true,
			ThresholdPercent: decimal.NewFromFloat(1.0),
		},
		Rolling: RollingRule{
			Enabled:          true,
			ThresholdPercent: decimal.NewFromFloat(2.0),
			WindowMinutes:    5,
		},
	}
}

// Window returns the rolling window as a duration.
func (r RollingRule) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}
