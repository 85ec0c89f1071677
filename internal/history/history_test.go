package history

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

func TestRecordEnforcesCap(t *testing.T) {
	store := NewStore(1000)
	base := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

	for i := 0; i < 1500; i++ {
		price := decimal.NewFromInt(int64(i + 1))
		if err := store.Record("RELIANCE", price, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	points := store.Read("RELIANCE")
	if len(points) != 1000 {
		t.Fatalf("expected exactly 1000 points, got %d", len(points))
	}

	// The survivors must be the 1000 most recent, oldest first.
	if !points[0].Price.Equal(decimal.NewFromInt(501)) {
		t.Fatalf("expected oldest retained price 501, got %s", points[0].Price)
	}
	if !points[999].Price.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected newest retained price 1500, got %s", points[999].Price)
	}
}

func TestRecordRejectsMalformedInput(t *testing.T) {
	store := NewStore(10)

	if err := store.Record("", decimal.NewFromInt(100), time.Now()); !errors.Is(err, market.ErrNoInstrument) {
		t.Fatalf("expected ErrNoInstrument, got %v", err)
	}
	if err := store.Record("TCS", decimal.Zero, time.Now()); !errors.Is(err, market.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for zero, got %v", err)
	}
	if err := store.Record("TCS", decimal.NewFromInt(-5), time.Now()); !errors.Is(err, market.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for negative, got %v", err)
	}

	if store.Len("TCS") != 0 {
		t.Fatal("rejected input must not mutate the store")
	}
}

func TestReadReturnsSnapshot(t *testing.T) {
	store := NewStore(10)
	base := time.Now().UTC()

	if err := store.Record("INFY", decimal.NewFromInt(100), base); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	snapshot := store.Read("INFY")
	if err := store.Record("INFY", decimal.NewFromInt(200), base.Add(time.Second)); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if len(snapshot) != 1 {
		t.Fatalf("snapshot must be unaffected by later writes, got %d points", len(snapshot))
	}
}

func TestReadUnknownInstrument(t *testing.T) {
	store := NewStore(10)
	if points := store.Read("UNKNOWN"); points != nil {
		t.Fatalf("expected nil history, got %v", points)
	}
}

func TestReadLast(t *testing.T) {
	store := NewStore(100)
	base := time.Now().UTC()
	for i := 0; i < 20; i++ {
		if err := store.Record("SBIN", decimal.NewFromInt(int64(i+1)), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	points := store.ReadLast("SBIN", 5)
	if len(points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(points))
	}
	if !points[0].Price.Equal(decimal.NewFromInt(16)) || !points[4].Price.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected the 5 most recent points, got %s..%s", points[0].Price, points[4].Price)
	}
}
