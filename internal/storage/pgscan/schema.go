package pgscan

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS scan_events (
  event_id TEXT PRIMARY KEY,
  parcel_id BIGINT NOT NULL,
  kind TEXT NOT NULL,
  status_code TEXT NOT NULL,
  occurred_at TIMESTAMPTZ NOT NULL,
  run_id TEXT NOT NULL,
  device_id INT NULL,
  user_id TEXT NULL,
  carrier_id TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_parcel_id ON scan_events(parcel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_occurred_at ON scan_events(occurred_at)`,
		`
CREATE TABLE IF NOT EXISTS parcel_scans (
  parcel_id BIGINT PRIMARY KEY,
  tracking_number TEXT NOT NULL,
  pickup_at TIMESTAMPTZ NULL,
  delivery_at TIMESTAMPTZ NULL,
  last_event_id TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		// for time-based queries
		`CREATE INDEX IF NOT EXISTS idx_parcel_scans_pickup_at ON parcel_scans(pickup_at, tracking_number)`,
		`CREATE INDEX IF NOT EXISTS idx_parcel_scans_delivery_at ON parcel_scans(delivery_at, tracking_number)`,
		`
CREATE TABLE IF NOT EXISTS processing_state (
  id TEXT PRIMARY KEY,
  last_processed_event_id TEXT NULL,
  last_processed_at TIMESTAMPTZ NOT NULL
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
