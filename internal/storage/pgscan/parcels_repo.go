package pgscan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ScanPipe/internal/models"
)

func (t *txScope) GetParcelScans(ctx context.Context, parcelIDs []int64) (map[int64]*models.ParcelScan, error) {
	out := make(map[int64]*models.ParcelScan, len(parcelIDs))
	if len(parcelIDs) == 0 {
		return out, nil
	}

	rows, err := t.tx.Query(ctx, `
SELECT parcel_id, tracking_number, pickup_at, delivery_at, last_event_id, created_at, updated_at
FROM parcel_scans
WHERE parcel_id = ANY($1)
`, parcelIDs)
	if err != nil {
		return nil, errors.Wrap(err, "select parcel scans")
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ParcelScan
		if err := rows.Scan(
			&p.ParcelID, &p.TrackingNumber, &p.PickupAt, &p.DeliveryAt, &p.LastEventID,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan parcel row")
		}
		out[p.ParcelID] = &p
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// InsertParcelScans bulk-inserts freshly created aggregates. Существующие
// записи сюда не попадают: они обновляются по одной через UpdateParcelScan.
func (t *txScope) InsertParcelScans(ctx context.Context, rows []*models.ParcelScan) error {
	now := time.Now().UTC()
	batch := make([][]any, 0, len(rows))
	for _, p := range rows {
		batch = append(batch, []any{
			p.ParcelID, p.TrackingNumber, tsPtr(p.PickupAt), tsPtr(p.DeliveryAt), p.LastEventID, now, now,
		})
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"parcel_scans"},
		[]string{"parcel_id", "tracking_number", "pickup_at", "delivery_at", "last_event_id", "created_at", "updated_at"},
		pgx.CopyFromRows(batch),
	)
	return errors.Wrap(err, "bulk insert parcel scans")
}

func (t *txScope) UpdateParcelScan(ctx context.Context, row *models.ParcelScan) error {
	_, err := t.tx.Exec(ctx, `
UPDATE parcel_scans
SET
  pickup_at = $2,
  delivery_at = $3,
  last_event_id = $4,
  updated_at = now()
WHERE parcel_id = $1
`, row.ParcelID, tsPtr(row.PickupAt), tsPtr(row.DeliveryAt), row.LastEventID)
	return errors.Wrap(err, "update parcel scan")
}

func (s *Storage) GetParcelScan(ctx context.Context, parcelID int64) (*models.ParcelScan, error) {
	var p models.ParcelScan
	err := s.db.QueryRow(ctx, `
SELECT parcel_id, tracking_number, pickup_at, delivery_at, last_event_id, created_at, updated_at
FROM parcel_scans
WHERE parcel_id = $1
`, parcelID).Scan(
		&p.ParcelID, &p.TrackingNumber, &p.PickupAt, &p.DeliveryAt, &p.LastEventID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select parcel scan")
	}
	return &p, nil
}

func (s *Storage) ListParcelScans(ctx context.Context, limit, offset int) ([]*models.ParcelScan, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT parcel_id, tracking_number, pickup_at, delivery_at, last_event_id, created_at, updated_at
FROM parcel_scans
ORDER BY parcel_id
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select parcel scans")
	}
	defer rows.Close()

	var out []*models.ParcelScan
	for rows.Next() {
		var p models.ParcelScan
		if err := rows.Scan(
			&p.ParcelID, &p.TrackingNumber, &p.PickupAt, &p.DeliveryAt, &p.LastEventID,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan parcel row")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func tsPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
