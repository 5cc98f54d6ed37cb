package ingest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ScanPipe/internal/models"
)

// ReconcileResult splits the fold outcome into rows the store has never seen
// (bulk insert) and pre-existing rows that changed (updated one by one).
type ReconcileResult struct {
	Created []*models.ParcelScan
	Updated []*models.ParcelScan
}

// Reconcile folds a batch of valid events into per-parcel aggregate state,
// last write wins by OccurredAt. existing maps parcel id to the stored row;
// rows are copied, the input map is not mutated.
func Reconcile(events []models.ScanEvent, existing map[int64]*models.ParcelScan) ReconcileResult {
	parcels := make(map[int64]*models.ParcelScan, len(existing))
	preexisting := make(map[int64]bool, len(existing))
	changed := make(map[int64]bool)
	for id, p := range existing {
		cp := *p
		parcels[id] = &cp
		preexisting[id] = true
	}

	applyOrderReceived(events, parcels, changed)
	applyPickupAndDelivery(events, parcels, changed)

	var res ReconcileResult
	for id, p := range parcels {
		if !changed[id] {
			continue
		}
		if preexisting[id] {
			res.Updated = append(res.Updated, p)
		} else {
			res.Created = append(res.Created, p)
		}
	}
	return res
}

// applyOrderReceived creates aggregates for first-seen parcels. Создание
// одноразовое: для уже существующей записи ORDER_RECEIVED — no-op.
func applyOrderReceived(events []models.ScanEvent, parcels map[int64]*models.ParcelScan, changed map[int64]bool) {
	latest := make(map[int64]models.ScanEvent)
	for _, e := range events {
		if e.Kind != models.KindStatus || e.StatusCode != models.StatusOrderReceived {
			continue
		}
		if cur, ok := latest[e.ParcelID]; !ok || e.OccurredAt.After(cur.OccurredAt) {
			latest[e.ParcelID] = e
		}
	}

	for parcelID, e := range latest {
		if _, ok := parcels[parcelID]; ok {
			continue
		}
		eventID := e.EventID
		parcels[parcelID] = &models.ParcelScan{
			ParcelID:       parcelID,
			TrackingNumber: TrackingNumber(parcelID),
			LastEventID:    &eventID,
		}
		changed[parcelID] = true
		slog.Info("created parcel record",
			"parcel_id", parcelID, "tracking_number", parcels[parcelID].TrackingNumber)
	}
}

func applyPickupAndDelivery(events []models.ScanEvent, parcels map[int64]*models.ParcelScan, changed map[int64]bool) {
	latestPickup := make(map[int64]models.ScanEvent)
	latestDelivery := make(map[int64]models.ScanEvent)
	for _, e := range events {
		switch e.Kind {
		case models.KindPickup:
			if cur, ok := latestPickup[e.ParcelID]; !ok || e.OccurredAt.After(cur.OccurredAt) {
				latestPickup[e.ParcelID] = e
			}
		case models.KindDelivery:
			if cur, ok := latestDelivery[e.ParcelID]; !ok || e.OccurredAt.After(cur.OccurredAt) {
				latestDelivery[e.ParcelID] = e
			}
		}
	}

	for parcelID, p := range parcels {
		pickup, hasPickup := latestPickup[parcelID]
		delivery, hasDelivery := latestDelivery[parcelID]
		if !hasPickup && !hasDelivery {
			continue
		}

		pickupApplied := hasPickup && applyTimestamp(&p.PickupAt, p.LastEventID, pickup)
		deliveryApplied := hasDelivery && applyTimestamp(&p.DeliveryAt, p.LastEventID, delivery)

		// Delivery — логически более поздняя стадия, её id побеждает.
		switch {
		case deliveryApplied:
			id := delivery.EventID
			p.LastEventID = &id
		case pickupApplied:
			id := pickup.EventID
			p.LastEventID = &id
		default:
			continue
		}
		changed[parcelID] = true
	}
}

// applyTimestamp applies the candidate event to the stored timestamp slot.
// No-op when the candidate is not strictly newer or is the exact event the
// aggregate already points at.
func applyTimestamp(stored **time.Time, lastEventID *string, e models.ScanEvent) bool {
	if lastEventID != nil && *lastEventID == e.EventID {
		slog.Info("skipping duplicate event", "event_id", e.EventID, "parcel_id", e.ParcelID)
		return false
	}
	if *stored != nil && !e.OccurredAt.After(**stored) {
		return false
	}
	t := e.OccurredAt
	*stored = &t
	return true
}

// TrackingNumber derives the stable tracking number for a parcel.
func TrackingNumber(parcelID int64) string {
	return fmt.Sprintf("TR%06d", parcelID)
}
