package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeFeed_Deterministic(t *testing.T) {
	a, err := New(10).FetchScanEvents(context.Background(), "", 1000)
	require.NoError(t, err)
	b, err := New(10).FetchScanEvents(context.Background(), "", 1000)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 60) // шесть событий на посылку
}

func TestFakeFeed_EventsOrderedByID(t *testing.T) {
	events, err := New(5).FetchScanEvents(context.Background(), "", 1000)
	require.NoError(t, err)
	for i := 1; i < len(events); i++ {
		require.Less(t, events[i-1].EventID, events[i].EventID)
	}
}

func TestFakeFeed_Pagination(t *testing.T) {
	f := New(5)

	first, err := f.FetchScanEvents(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := f.FetchScanEvents(context.Background(), first[len(first)-1].EventID, 10)
	require.NoError(t, err)
	require.Len(t, second, 10)
	require.Greater(t, second[0].EventID, first[len(first)-1].EventID)

	// Повтор той же страницы даёт тот же результат.
	again, err := f.FetchScanEvents(context.Background(), first[len(first)-1].EventID, 10)
	require.NoError(t, err)
	require.Equal(t, second, again)
}

func TestFakeFeed_CursorPastEndReturnsNothing(t *testing.T) {
	f := New(2)
	all, err := f.FetchScanEvents(context.Background(), "", 1000)
	require.NoError(t, err)

	rest, err := f.FetchScanEvents(context.Background(), all[len(all)-1].EventID, 10)
	require.NoError(t, err)
	require.Empty(t, rest)
}

func TestFakeFeed_EventsCarryRunID(t *testing.T) {
	events, err := New(3).FetchScanEvents(context.Background(), "", 1000)
	require.NoError(t, err)
	for _, e := range events {
		require.NotNil(t, e.User)
		require.NotEmpty(t, e.User.RunID)
		require.NotZero(t, e.ParcelID)
		require.False(t, e.CreatedDateTimeUtc.IsZero())
	}
}
