package alerting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

var evalNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func points(prices ...float64) []market.PricePoint {
	history := make([]market.PricePoint, len(prices))
	for i, price := range prices {
		history[i] = market.PricePoint{
			Price:     decimal.NewFromFloat(price),
			Timestamp: evalNow.Add(-time.Duration(len(prices)-i) * time.Second),
		}
	}
	return history
}

func TestEvaluateTrailingDip(t *testing.T) {
	history := points(95, 100, 98)

	alert, ok := EvaluateTrailing("RELIANCE", decimal.NewFromInt(97), history, decimal.NewFromFloat(2.0), evalNow)
	if !ok {
		t.Fatal("expected a DIP alert: drop is 3.0% against threshold 2.0%")
	}
	if alert.Kind != market.KindDip {
		t.Fatalf("expected DIP, got %s", alert.Kind)
	}
	if !alert.Percent.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected percent 3, got %s", alert.Percent)
	}
	if alert.Algorithm != market.AlgoTrailing {
		t.Fatalf("unexpected algorithm %q", alert.Algorithm)
	}
}

func TestEvaluateTrailingBelowThreshold(t *testing.T) {
	history := points(95, 100, 98)

	if _, ok := EvaluateTrailing("RELIANCE", decimal.NewFromInt(99), history, decimal.NewFromFloat(2.0), evalNow); ok {
		t.Fatal("1.0% drop must not trip a 2.0% threshold")
	}
}

func TestEvaluateTrailingEmptyHistory(t *testing.T) {
	if _, ok := EvaluateTrailing("RELIANCE", decimal.NewFromInt(1), nil, decimal.Zero, evalNow); ok {
		t.Fatal("empty history must never alert, even at threshold 0")
	}
}

func TestEvaluateTrailingZeroThreshold(t *testing.T) {
	history := points(100)
	if _, ok := EvaluateTrailing("RELIANCE", decimal.NewFromInt(100), history, decimal.Zero, evalNow); !ok {
		t.Fatal("threshold 0 fires on any non-negative move, including 0%")
	}
}

func TestEvaluateTrailingDeterminism(t *testing.T) {
	history := points(95, 100, 98)
	price := decimal.NewFromFloat(96.5)
	threshold := decimal.NewFromFloat(1.0)

	first, okFirst := EvaluateTrailing("X", price, history, threshold, evalNow)
	for i := 0; i < 50; i++ {
		next, ok := EvaluateTrailing("X", price, history, threshold, evalNow)
		if ok != okFirst || !next.Percent.Equal(first.Percent) {
			t.Fatalf("evaluation must be pure; run %d diverged", i)
		}
	}
}

func TestEvaluateRollingSpike(t *testing.T) {
	history := []market.PricePoint{
		{Price: decimal.NewFromInt(50), Timestamp: evalNow.Add(-2 * time.Minute)},
		{Price: decimal.NewFromInt(51), Timestamp: evalNow.Add(-time.Minute)},
	}

	alert, ok := EvaluateRolling("TCS", decimal.NewFromInt(52), history, 5*time.Minute, decimal.NewFromFloat(2.0), evalNow)
	if !ok {
		t.Fatal("expected a SPIKE alert: gain is 4.0% against threshold 2.0%")
	}
	if alert.Kind != market.KindSpike {
		t.Fatalf("expected SPIKE, got %s", alert.Kind)
	}
	if !alert.Percent.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected percent 4, got %s", alert.Percent)
	}
}

func TestEvaluateRollingWindowBoundary(t *testing.T) {
	window := 5 * time.Minute
	threshold := decimal.NewFromFloat(2.0)
	price := decimal.NewFromInt(52)

	onBoundary := []market.PricePoint{
		{Price: decimal.NewFromInt(50), Timestamp: evalNow.Add(-window)},
	}
	if _, ok := EvaluateRolling("TCS", price, onBoundary, window, threshold, evalNow); !ok {
		t.Fatal("a point exactly at now-window is inside the window")
	}

	justOutside := []market.PricePoint{
		{Price: decimal.NewFromInt(50), Timestamp: evalNow.Add(-window).Add(-time.Millisecond)},
	}
	if _, ok := EvaluateRolling("TCS", price, justOutside, window, threshold, evalNow); ok {
		t.Fatal("a point one millisecond older than the window is excluded")
	}
}

func TestEvaluateRollingEmptyWindow(t *testing.T) {
	stale := []market.PricePoint{
		{Price: decimal.NewFromInt(50), Timestamp: evalNow.Add(-time.Hour)},
	}
	if _, ok := EvaluateRolling("TCS", decimal.NewFromInt(100), stale, 5*time.Minute, decimal.Zero, evalNow); ok {
		t.Fatal("an empty filtered window must never alert, even at threshold 0")
	}
}

func TestEvaluateHybridBothFire(t *testing.T) {
	// Max 100 sits outside any 5m window; min 50 sits inside. Price 55 is
	// a 45% dip from the max and a 10% gain over the window min.
	history := []market.PricePoint{
		{Price: decimal.NewFromInt(100), Timestamp: evalNow.Add(-time.Hour)},
		{Price: decimal.NewFromInt(50), Timestamp: evalNow.Add(-time.Minute)},
	}
	rule := market.AlertRule{
		Trailing: market.TrailingRule{Enabled: true, ThresholdPercent: decimal.NewFromFloat(2.0)},
		Rolling:  market.RollingRule{Enabled: true, ThresholdPercent: decimal.NewFromFloat(2.0), WindowMinutes: 5},
	}

	candidates := Evaluate("SBIN", decimal.NewFromInt(55), history, rule, evalNow)
	if len(candidates) != 2 {
		t.Fatalf("expected both algorithms to fire, got %d candidates", len(candidates))
	}
	if candidates[0].Kind != market.KindDip || candidates[1].Kind != market.KindSpike {
		t.Fatalf("unexpected kinds %s/%s", candidates[0].Kind, candidates[1].Kind)
	}
}

func TestEvaluateDisabledAlgorithms(t *testing.T) {
	history := points(100)
	rule := market.AlertRule{} // both disabled

	if candidates := Evaluate("SBIN", decimal.NewFromInt(1), history, rule, evalNow); len(candidates) != 0 {
		t.Fatalf("disabled rule produced %d candidates", len(candidates))
	}
}
