package ingest

import (
	"strings"

	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
	"github.com/BearBump/ScanPipe/internal/models"
)

// Normalize maps one wire record into a domain ScanEvent. Unrecognized kind
// or status strings map to UNKNOWN (a representable state, filtered later),
// but a structurally missing field is a MappingError.
func Normalize(raw scanfeed.RawScanEvent) (models.ScanEvent, error) {
	if raw.EventID == "" {
		return models.ScanEvent{}, &MappingError{Field: "EventId"}
	}
	if raw.ParcelID == 0 {
		return models.ScanEvent{}, &MappingError{EventID: raw.EventID, Field: "ParcelId"}
	}
	if raw.CreatedDateTimeUtc.IsZero() {
		return models.ScanEvent{}, &MappingError{EventID: raw.EventID, Field: "CreatedDateTimeUtc"}
	}
	if raw.User == nil || raw.User.RunID == "" {
		return models.ScanEvent{}, &MappingError{EventID: raw.EventID, Field: "User.RunId"}
	}

	e := models.ScanEvent{
		EventID:    raw.EventID,
		ParcelID:   raw.ParcelID,
		Kind:       normalizeKind(raw.Type),
		StatusCode: normalizeStatusCode(raw.StatusCode),
		OccurredAt: raw.CreatedDateTimeUtc.UTC(),
		RunID:      raw.User.RunID,
		UserID:     raw.User.UserID,
		CarrierID:  raw.User.CarrierID,
	}
	if raw.Device != nil {
		e.DeviceID = raw.Device.DeviceID
	}
	return e, nil
}

func NormalizeBatch(raws []scanfeed.RawScanEvent) ([]models.ScanEvent, error) {
	out := make([]models.ScanEvent, 0, len(raws))
	for _, raw := range raws {
		e, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func normalizeKind(apiType string) string {
	switch strings.ToUpper(apiType) {
	case models.KindPickup:
		return models.KindPickup
	case models.KindStatus:
		return models.KindStatus
	case models.KindDelivery:
		return models.KindDelivery
	default:
		return models.KindUnknown
	}
}

func normalizeStatusCode(apiStatus string) string {
	switch strings.ToUpper(apiStatus) {
	case models.StatusOrderReceived:
		return models.StatusOrderReceived
	case models.StatusPreparing:
		return models.StatusPreparing
	case models.StatusInTransit:
		return models.StatusInTransit
	case models.StatusOutForDelivery:
		return models.StatusOutForDelivery
	case models.StatusDispatched:
		return models.StatusDispatched
	case models.StatusDelivered:
		return models.StatusDelivered
	default:
		return models.StatusUnknown
	}
}
