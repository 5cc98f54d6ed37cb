package pgscan

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ScanPipe/internal/models"
)

// InsertScanEvents persists raw events idempotently: повторная вставка уже
// сохранённого event_id молча пропускается.
func (t *txScope) InsertScanEvents(ctx context.Context, events []models.ScanEvent) error {
	now := time.Now().UTC()
	for _, e := range events {
		_, err := t.tx.Exec(ctx, `
INSERT INTO scan_events (
  event_id, parcel_id, kind, status_code, occurred_at, run_id, device_id, user_id, carrier_id, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (event_id) DO NOTHING
`, e.EventID, e.ParcelID, e.Kind, e.StatusCode, e.OccurredAt.UTC(), e.RunID, e.DeviceID, e.UserID, e.CarrierID, now)
		if err != nil {
			return errors.Wrap(err, "insert scan event")
		}
	}
	return nil
}

// ListScanEvents returns stored raw events for one parcel, newest first.
// Read-only; used by the inspection tooling.
func (s *Storage) ListScanEvents(ctx context.Context, parcelID int64, limit, offset int) ([]*models.ScanEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  event_id, parcel_id, kind, status_code,
  occurred_at, run_id, device_id, user_id, carrier_id
FROM scan_events
WHERE parcel_id = $1
ORDER BY occurred_at DESC
LIMIT $2 OFFSET $3
`, parcelID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select scan events")
	}
	defer rows.Close()

	var out []*models.ScanEvent
	for rows.Next() {
		var e models.ScanEvent
		if err := rows.Scan(
			&e.EventID, &e.ParcelID, &e.Kind, &e.StatusCode,
			&e.OccurredAt, &e.RunID, &e.DeviceID, &e.UserID, &e.CarrierID,
		); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CountScanEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM scan_events`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count scan events")
	}
	return n, nil
}
