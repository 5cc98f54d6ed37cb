package ingest

import (
	"log/slog"

	"github.com/BearBump/ScanPipe/internal/models"
)

// Допустимые пары (kind, status) — всё остальное ошибка валидации.
var validCombinations = map[string]map[string]bool{
	models.KindStatus: {
		models.StatusOrderReceived:  true,
		models.StatusPreparing:      true,
		models.StatusInTransit:      true,
		models.StatusOutForDelivery: true,
	},
	models.KindPickup: {
		models.StatusDispatched: true,
	},
	models.KindDelivery: {
		models.StatusDelivered: true,
	},
}

// FilterUnknown drops events with an unknown kind or status code. Dropping is
// not a failure: the feed is allowed to send vocabulary we do not speak yet.
func FilterUnknown(events []models.ScanEvent) []models.ScanEvent {
	valid := make([]models.ScanEvent, 0, len(events))
	for _, e := range events {
		if e.IsUnknown() {
			slog.Warn("skipping unknown event",
				"event_id", e.EventID, "kind", e.Kind, "status_code", e.StatusCode)
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

// CheckCombinations fails fast on the first event whose (kind, status) pair
// is not in the allowed set. Input is assumed already filtered by
// FilterUnknown.
func CheckCombinations(events []models.ScanEvent) error {
	for _, e := range events {
		if !validCombinations[e.Kind][e.StatusCode] {
			return &ValidationError{EventID: e.EventID, Kind: e.Kind, StatusCode: e.StatusCode}
		}
	}
	return nil
}
