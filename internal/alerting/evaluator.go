package alerting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

var hundred = decimal.NewFromInt(100)

// EvaluateTrailing checks for a dip from the maximum price in the retained
// history, approximating a trailing stop-loss. It fires relative to the peak
// observed in the window, not the previous tick, so single-tick reversals do
// not trigger it.
//
// Empty history yields no alert. A zero maximum makes the drop percentage
// undefined and suppresses evaluation rather than faulting.
func EvaluateTrailing(instrument string, price decimal.Decimal, history []market.PricePoint, threshold decimal.Decimal, now time.Time) (market.Alert, bool) {
	if len(history) == 0 {
		return market.Alert{}, false
	}

	maxPrice := history[0].Price
	for _, point := range history[1:] {
		if point.Price.GreaterThan(maxPrice) {
			maxPrice = point.Price
		}
	}
	if maxPrice.IsZero() {
		return market.Alert{}, false
	}

	drop := maxPrice.Sub(price).Div(maxPrice).Mul(hundred)
	if drop.LessThan(threshold) {
		return market.Alert{}, false
	}

	return market.Alert{
		Kind:       market.KindDip,
		Instrument: instrument,
		Percent:    drop,
		Price:      price,
		Timestamp:  now,
		Algorithm:  market.AlgoTrailing,
	}, true
}

// EvaluateRolling checks for a spike from the minimum price within the
// trailing window, bounding the comparison to a recent horizon so stale
// extremes cannot delay detection of intraday moves.
//
// A point exactly at now-window is inside the window. An empty window yields
// no alert; a zero minimum suppresses evaluation.
func EvaluateRolling(instrument string, price decimal.Decimal, history []market.PricePoint, window time.Duration, threshold decimal.Decimal, now time.Time) (market.Alert, bool) {
	if len(history) == 0 {
		return market.Alert{}, false
	}

	cutoff := now.Add(-window)
	var minPrice decimal.Decimal
	found := false
	for _, point := range history {
		if point.Timestamp.Before(cutoff) {
			continue
		}
		if !found || point.Price.LessThan(minPrice) {
			minPrice = point.Price
			found = true
		}
	}
	if !found || minPrice.IsZero() {
		return market.Alert{}, false
	}

	gain := price.Sub(minPrice).Div(minPrice).Mul(hundred)
	if gain.LessThan(threshold) {
		return market.Alert{}, false
	}

	return market.Alert{
		Kind:       market.KindSpike,
		Instrument: instrument,
		Percent:    gain,
		Price:      price,
		Timestamp:  now,
		Algorithm:  market.AlgoRolling,
	}, true
}

// Evaluate runs every enabled algorithm of a rule and returns the candidate
// alerts, at most one per kind. Both may fire for the same tick.
func Evaluate(instrument string, price decimal.Decimal, history []market.PricePoint, rule market.AlertRule, now time.Time) []market.Alert {
	candidates := make([]market.Alert, 0, 2)

	if rule.Trailing.Enabled {
		if alert, ok := EvaluateTrailing(instrument, price, history, rule.Trailing.ThresholdPercent, now); ok {
			candidates = append(candidates, alert)
		}
	}
	if rule.Rolling.Enabled {
		if alert, ok := EvaluateRolling(instrument, price, history, rule.Rolling.Window(), rule.Rolling.ThresholdPercent, now); ok {
			candidates = append(candidates, alert)
		}
	}
	return candidates
}
