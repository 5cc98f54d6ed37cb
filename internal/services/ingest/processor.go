package ingest

import (
	"context"
	"log/slog"

	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/BearBump/ScanPipe/internal/models"
	"github.com/BearBump/ScanPipe/internal/storage/pgscan"
)

// Store is what the processor needs from the storage collaborator.
type Store interface {
	GetCursor(ctx context.Context) (*models.Cursor, error)
	RunInTx(ctx context.Context, fn func(tx pgscan.Tx) error) error
}

type ProcessResult struct {
	Fetched  int
	Filtered int
	Stored   int

	Created []*models.ParcelScan
	Updated []*models.ParcelScan

	// Cursor value persisted for this page, nil when nothing was fetched.
	Cursor *string
}

type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// ProcessBatch runs one fetched page through normalize -> filter -> validate
// -> persist -> reconcile -> cursor, the last four inside one transaction.
// Либо вся валидная часть пачки плюс курсор сохраняются целиком, либо ничего.
// Исключение одно и намеренное: страница из одних unknown-событий двигает
// курсор, а ошибка комбинации — нет.
func (p *Processor) ProcessBatch(ctx context.Context, raws []scanfeed.RawScanEvent) (ProcessResult, error) {
	res := ProcessResult{Fetched: len(raws)}
	if len(raws) == 0 {
		return res, nil
	}

	events, err := NormalizeBatch(raws)
	if err != nil {
		// Схема фида поехала; курсор не двигаем, чтобы это было видно.
		return res, err
	}

	maxEventID := maxRawEventID(raws)
	res.Cursor = &maxEventID

	valid := FilterUnknown(events)
	res.Filtered = len(events) - len(valid)

	if len(valid) == 0 {
		slog.Warn("no valid events to process after filtering", "fetched", len(raws))
		err := p.store.RunInTx(ctx, func(tx pgscan.Tx) error {
			return tx.SaveCursor(ctx, &maxEventID)
		})
		if err != nil {
			res.Cursor = nil
			return res, err
		}
		return res, nil
	}

	err = p.store.RunInTx(ctx, func(tx pgscan.Tx) error {
		if err := CheckCombinations(valid); err != nil {
			return err
		}

		if err := tx.InsertScanEvents(ctx, valid); err != nil {
			return err
		}
		res.Stored = len(valid)

		existing, err := tx.GetParcelScans(ctx, parcelIDs(valid))
		if err != nil {
			return err
		}

		rec := Reconcile(valid, existing)
		if len(rec.Created) > 0 {
			if err := tx.InsertParcelScans(ctx, rec.Created); err != nil {
				return err
			}
		}
		for _, row := range rec.Updated {
			if err := tx.UpdateParcelScan(ctx, row); err != nil {
				return err
			}
		}
		res.Created = rec.Created
		res.Updated = rec.Updated

		return tx.SaveCursor(ctx, &maxEventID)
	})
	if err != nil {
		res.Stored = 0
		res.Created = nil
		res.Updated = nil
		res.Cursor = nil
		return res, err
	}

	slog.Info("processed scan event batch",
		"fetched", res.Fetched, "stored", res.Stored, "filtered", res.Filtered,
		"parcels_created", len(res.Created), "parcels_updated", len(res.Updated),
		"cursor", maxEventID)
	return res, nil
}

// Курсор — максимальный EventId всей страницы, включая отфильтрованные
// unknown-события: страница уже долговечно классифицирована.
func maxRawEventID(raws []scanfeed.RawScanEvent) string {
	max := raws[0].EventID
	for _, r := range raws[1:] {
		if r.EventID > max {
			max = r.EventID
		}
	}
	return max
}

func parcelIDs(events []models.ScanEvent) []int64 {
	seen := make(map[int64]bool, len(events))
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if !seen[e.ParcelID] {
			seen[e.ParcelID] = true
			ids = append(ids, e.ParcelID)
		}
	}
	return ids
}
