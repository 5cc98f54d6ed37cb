package ingest

import (
	"testing"
	"time"

	"github.com/BearBump/ScanPipe/internal/models"
	"github.com/stretchr/testify/require"
)

func event(id string, parcelID int64, kind, status string, at time.Time) models.ScanEvent {
	return models.ScanEvent{
		EventID:    id,
		ParcelID:   parcelID,
		Kind:       kind,
		StatusCode: status,
		OccurredAt: at,
		RunID:      "run-1",
	}
}

func TestFilterUnknown(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ScanEvent{
		event("e1", 1, models.KindStatus, models.StatusOrderReceived, now),
		event("e2", 1, models.KindUnknown, models.StatusUnknown, now),
		event("e3", 1, models.KindPickup, models.StatusUnknown, now),
		event("e4", 1, models.KindUnknown, models.StatusDelivered, now),
		event("e5", 1, models.KindDelivery, models.StatusDelivered, now),
	}

	valid := FilterUnknown(events)
	require.Len(t, valid, 2)
	require.Equal(t, "e1", valid[0].EventID)
	require.Equal(t, "e5", valid[1].EventID)
}

func TestFilterUnknown_Empty(t *testing.T) {
	require.Empty(t, FilterUnknown(nil))
}

func TestCheckCombinations_AllValidPairs(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ScanEvent{
		event("e1", 1, models.KindStatus, models.StatusOrderReceived, now),
		event("e2", 1, models.KindStatus, models.StatusPreparing, now),
		event("e3", 1, models.KindStatus, models.StatusInTransit, now),
		event("e4", 1, models.KindStatus, models.StatusOutForDelivery, now),
		event("e5", 1, models.KindPickup, models.StatusDispatched, now),
		event("e6", 1, models.KindDelivery, models.StatusDelivered, now),
	}
	require.NoError(t, CheckCombinations(events))
}

func TestCheckCombinations_InvalidPairFailsFast(t *testing.T) {
	now := time.Now().UTC()
	events := []models.ScanEvent{
		event("e1", 1, models.KindStatus, models.StatusOrderReceived, now),
		event("e2", 1, models.KindStatus, models.StatusDispatched, now),
		event("e3", 1, models.KindPickup, models.StatusDelivered, now),
	}

	err := CheckCombinations(events)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "e2", ve.EventID)
	require.Equal(t, models.KindStatus, ve.Kind)
	require.Equal(t, models.StatusDispatched, ve.StatusCode)
}

func TestCheckCombinations_CrossKindPairs(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		kind, status string
	}{
		{models.KindPickup, models.StatusInTransit},
		{models.KindPickup, models.StatusDelivered},
		{models.KindDelivery, models.StatusDispatched},
		{models.KindDelivery, models.StatusOrderReceived},
		{models.KindStatus, models.StatusDelivered},
	}
	for _, c := range cases {
		err := CheckCombinations([]models.ScanEvent{event("x", 1, c.kind, c.status, now)})
		require.Error(t, err, "pair (%s, %s) must be rejected", c.kind, c.status)
	}
}
