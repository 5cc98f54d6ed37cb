package pgscan

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/BearBump/ScanPipe/internal/models"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Tx is one transactional scope over the scan store. All writes of a
// processing cycle go through a single Tx so readers see either the
// pre-cycle or the post-cycle state, never a partial one.
type Tx interface {
	InsertScanEvents(ctx context.Context, events []models.ScanEvent) error
	GetParcelScans(ctx context.Context, parcelIDs []int64) (map[int64]*models.ParcelScan, error)
	InsertParcelScans(ctx context.Context, rows []*models.ParcelScan) error
	UpdateParcelScan(ctx context.Context, row *models.ParcelScan) error
	SaveCursor(ctx context.Context, eventID *string) error
}

// RunInTx runs fn inside a Postgres transaction. Любая ошибка из fn
// откатывает всё целиком.
func (s *Storage) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txScope{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

type txScope struct {
	tx pgx.Tx
}
