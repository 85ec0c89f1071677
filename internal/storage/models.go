package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

// AlertRecord is the audit trail entry for one dispatched alert. It carries
// enough to reconstruct why the alert fired: who, which instrument, which
// kind and algorithm, the move magnitude, and the triggering price.
type AlertRecord struct {
	ID         int64
	Subscriber string
	Instrument string
	Kind       market.AlertKind
	Percent    decimal.Decimal
	Price      decimal.Decimal
	Algorithm  string
	Timestamp  time.Time
	CreatedAt  time.Time
}

// RecordFromAlert enriches an evaluator alert with its subscriber.
func RecordFromAlert(alert market.Alert, subscriber string) AlertRecord {
	return AlertRecord{
		Subscriber: subscriber,
		Instrument: alert.Instrument,
		Kind:       alert.Kind,
		Percent:    alert.Percent,
		Price:      alert.Price,
		Algorithm:  alert.Algorithm,
		Timestamp:  alert.Timestamp,
	}
}
