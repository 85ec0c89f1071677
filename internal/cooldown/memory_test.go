package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

func newTestLedger(at time.Time) (*Memory, *time.Time) {
	clock := at
	ledger := NewMemory()
	ledger.now = func() time.Time { return clock }
	return ledger, &clock
}

func TestTryArmSuppressionWindow(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger, clock := newTestLedger(start)
	ctx := context.Background()

	armed, err := ledger.TryArm(ctx, "u1", "RELIANCE", market.KindDip, 300*time.Second)
	if err != nil || !armed {
		t.Fatalf("first arm should win: armed=%v err=%v", armed, err)
	}

	// Suppressed throughout [T, T+300s).
	for _, offset := range []time.Duration{0, time.Second, 299 * time.Second} {
		*clock = start.Add(offset)
		suppressed, err := ledger.IsSuppressed(ctx, "u1", "RELIANCE", market.KindDip)
		if err != nil || !suppressed {
			t.Fatalf("expected suppression at +%s", offset)
		}
	}

	// Free again at exactly T+300s.
	*clock = start.Add(300 * time.Second)
	suppressed, err := ledger.IsSuppressed(ctx, "u1", "RELIANCE", market.KindDip)
	if err != nil || suppressed {
		t.Fatal("suppression must end at exactly T+TTL")
	}

	armed, err = ledger.TryArm(ctx, "u1", "RELIANCE", market.KindDip, 300*time.Second)
	if err != nil || !armed {
		t.Fatal("arming must succeed once the previous window expired")
	}
}

func TestTryArmLosesWhileLive(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())
	ctx := context.Background()

	if armed, _ := ledger.TryArm(ctx, "u1", "TCS", market.KindSpike, time.Minute); !armed {
		t.Fatal("first arm should win")
	}
	if armed, _ := ledger.TryArm(ctx, "u1", "TCS", market.KindSpike, time.Minute); armed {
		t.Fatal("second arm for a live key must lose")
	}
}

func TestKindsAreIndependent(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())
	ctx := context.Background()

	if armed, _ := ledger.TryArm(ctx, "u1", "INFY", market.KindDip, time.Minute); !armed {
		t.Fatal("dip arm should win")
	}

	suppressed, err := ledger.IsSuppressed(ctx, "u1", "INFY", market.KindSpike)
	if err != nil || suppressed {
		t.Fatal("a DIP cooldown must not suppress SPIKE for the same pair")
	}
	if armed, _ := ledger.TryArm(ctx, "u1", "INFY", market.KindSpike, time.Minute); !armed {
		t.Fatal("spike arm must win independently of the dip entry")
	}
}

func TestSubscribersAreIndependent(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())
	ctx := context.Background()

	if armed, _ := ledger.TryArm(ctx, "u1", "INFY", market.KindDip, time.Minute); !armed {
		t.Fatal("arm should win")
	}
	if suppressed, _ := ledger.IsSuppressed(ctx, "u2", "INFY", market.KindDip); suppressed {
		t.Fatal("another subscriber's key must be unaffected")
	}
}

func TestDisarm(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())
	ctx := context.Background()

	if armed, _ := ledger.TryArm(ctx, "u1", "SBIN", market.KindDip, time.Minute); !armed {
		t.Fatal("arm should win")
	}
	if err := ledger.Disarm(ctx, "u1", "SBIN", market.KindDip); err != nil {
		t.Fatalf("disarm failed: %v", err)
	}
	if armed, _ := ledger.TryArm(ctx, "u1", "SBIN", market.KindDip, time.Minute); !armed {
		t.Fatal("arming must succeed after a rollback")
	}
}
