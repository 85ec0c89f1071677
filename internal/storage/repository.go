package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Datta-sai-vvn/StormAlert/internal/market"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO alerts (
        subscriber_id,
        instrument,
        alert_kind,
        percent,
        price,
        algorithm,
        triggered_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, subscriber_id, instrument, alert_kind, percent, price, algorithm, triggered_at, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        subscriber_id,
        instrument,
        alert_kind,
        percent,
        price,
        algorithm,
        triggered_at,
        created_at
    FROM alerts
    ORDER BY triggered_at DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT
        id,
        subscriber_id,
        instrument,
        alert_kind,
        percent,
        price,
        algorithm,
        triggered_at,
        created_at
    FROM alerts
    WHERE triggered_at >= $1
      AND triggered_at < $2
    ORDER BY triggered_at;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	countAlertsSQL = `SELECT COUNT(*) FROM alerts;`
)

// AlertStore defines the audit persistence contract for dispatched alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, record AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountAlerts(ctx context.Context) (int64, error)
}

// Store is the pgx-backed AlertStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists one audit record and returns it with generated fields.
func (s *Store) InsertAlert(ctx context.Context, record AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		record.Subscriber,
		record.Instrument,
		string(record.Kind),
		record.Percent.String(),
		record.Price.String(),
		record.Algorithm,
		record.Timestamp,
	)

	stored, scanErr := scanAlertRecord(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return stored, nil
}

// ListRecentAlerts lists the most recent audit records.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlertRecords(rows, limit)
}

// ListAlertsBetween lists audit records within a time window.
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return collectAlertRecords(rows, 0)
}

// DeleteAlertsBefore removes audit records older than the retention horizon.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete alerts before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountAlerts counts stored audit records.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

func collectAlertRecords(rows pgx.Rows, sizeHint int) ([]AlertRecord, error) {
	records := make([]AlertRecord, 0, sizeHint)
	for rows.Next() {
		record, scanErr := scanAlertRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAlertRecord(row pgx.Row) (AlertRecord, error) {
	var (
		record     AlertRecord
		kind       string
		percentStr string
		priceStr   string
	)

	if err := row.Scan(
		&record.ID,
		&record.Subscriber,
		&record.Instrument,
		&kind,
		&percentStr,
		&priceStr,
		&record.Algorithm,
		&record.Timestamp,
		&record.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	record.Kind = market.AlertKind(kind)

	var convErr error
	record.Percent, convErr = decimal.NewFromString(percentStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse percent: %w", convErr)
	}
	record.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse price: %w", convErr)
	}

	return record, nil
}

var _ AlertStore = (*Store)(nil)
