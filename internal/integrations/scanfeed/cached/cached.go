package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ScanPipe/internal/cache"
	"github.com/BearBump/ScanPipe/internal/integrations/scanfeed"
)

// Client — read-through обёртка над фидом: ответ страницы кладём в кэш по ключу
// (cursor, limit) с коротким TTL. Кэш чисто совещательный: промах или ошибка
// кэша просто уходит в реальный фид.
type Client struct {
	next scanfeed.Client
	c    cache.BytesCache
	ttl  time.Duration
}

func New(next scanfeed.Client, c cache.BytesCache, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{next: next, c: c, ttl: ttl}
}

func (c *Client) FetchScanEvents(ctx context.Context, afterEventID string, limit int) ([]scanfeed.RawScanEvent, error) {
	key := pageKey(afterEventID, limit)

	if c.c != nil {
		b, ok, err := c.c.Get(ctx, key)
		if err != nil {
			slog.Warn("scan feed cache get", "key", key, "error", err.Error())
		} else if ok {
			var events []scanfeed.RawScanEvent
			if json.Unmarshal(b, &events) == nil {
				return events, nil
			}
			// Битое значение не должно жить до конца TTL.
			_ = c.c.Remove(ctx, key)
		}
	}

	events, err := c.next.FetchScanEvents(ctx, afterEventID, limit)
	if err != nil {
		return nil, err
	}

	if c.c != nil && len(events) > 0 {
		if b, err := json.Marshal(events); err == nil {
			if err := c.c.Set(ctx, key, b, c.ttl); err != nil {
				slog.Warn("scan feed cache set", "key", key, "error", err.Error())
			}
		}
	}
	return events, nil
}

func pageKey(afterEventID string, limit int) string {
	return fmt.Sprintf("scanevents:%s:%d", afterEventID, limit)
}
