package pgscan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ScanPipe/internal/models"
)

// Единственная строка состояния обработки; ключ фиксированный.
const stateKey = "current_state"

// GetCursor returns the saved resume point. Nil LastProcessedEventID means
// the feed has never been successfully processed ("from the beginning").
func (s *Storage) GetCursor(ctx context.Context) (*models.Cursor, error) {
	var c models.Cursor
	err := s.db.QueryRow(ctx, `
SELECT last_processed_event_id, last_processed_at
FROM processing_state
WHERE id = $1
`, stateKey).Scan(&c.LastProcessedEventID, &c.LastProcessedAt)
	if err == pgx.ErrNoRows {
		return &models.Cursor{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select processing state")
	}
	return &c, nil
}

func (t *txScope) SaveCursor(ctx context.Context, eventID *string) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO processing_state (id, last_processed_event_id, last_processed_at)
VALUES ($1, $2, $3)
ON CONFLICT (id)
DO UPDATE SET last_processed_event_id = EXCLUDED.last_processed_event_id,
              last_processed_at = EXCLUDED.last_processed_at
`, stateKey, eventID, time.Now().UTC())
	return errors.Wrap(err, "save processing state")
}
