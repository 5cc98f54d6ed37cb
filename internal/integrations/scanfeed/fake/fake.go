package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
)

// FakeFeed — локальная заглушка фида сканов (пока нет доступа к реальному API).
// Генерирует детерминированную историю: каждая посылка проходит жизненный цикл
// ORDER_RECEIVED -> ... -> DELIVERED, часть событий намеренно с мусорным типом.
type FakeFeed struct {
	events []scanfeed.RawScanEvent
}

func New(parcels int) *FakeFeed {
	if parcels <= 0 {
		parcels = 25
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	steps := []struct {
		typ    string
		status string
	}{
		{"STATUS", "ORDER_RECEIVED"},
		{"STATUS", "PREPARING"},
		{"STATUS", "IN_TRANSIT"},
		{"PICKUP", "DISPATCHED"},
		{"STATUS", "OUT_FOR_DELIVERY"},
		{"DELIVERY", "DELIVERED"},
	}

	var events []scanfeed.RawScanEvent
	seq := 0
	for p := 1; p <= parcels; p++ {
		parcelID := int64(1000 + p)
		h := fnv.New32a()
		_, _ = h.Write([]byte(fmt.Sprintf("parcel-%d", parcelID)))
		v := h.Sum32()

		// Примерно каждая десятая посылка получает событие с неизвестным типом.
		for i, st := range steps {
			seq++
			typ, status := st.typ, st.status
			if v%10 == 0 && i == 2 {
				typ, status = "MYSTERY", "LOST_IN_SPACE"
			}
			runID := fmt.Sprintf("run-%d", v%5+1)
			events = append(events, scanfeed.RawScanEvent{
				EventID:            fmt.Sprintf("E%08d", seq),
				ParcelID:           parcelID,
				Type:               typ,
				StatusCode:         status,
				CreatedDateTimeUtc: base.Add(time.Duration(seq) * 13 * time.Minute),
				User: &scanfeed.RawUser{
					RunID: runID,
				},
			})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
	return &FakeFeed{events: events}
}

func (f *FakeFeed) FetchScanEvents(ctx context.Context, afterEventID string, limit int) ([]scanfeed.RawScanEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	out := make([]scanfeed.RawScanEvent, 0, limit)
	for _, e := range f.events {
		if afterEventID != "" && e.EventID <= afterEventID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
