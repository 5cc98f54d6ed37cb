package scanfeed

import (
	"context"
	"time"
)

// RawScanEvent is one wire-format record as the upstream feed returns it.
// Field names follow the feed contract, not ours.
type RawScanEvent struct {
	EventID            string     `json:"EventId"`
	ParcelID           int64      `json:"ParcelId"`
	Type               string     `json:"Type"`
	StatusCode         string     `json:"StatusCode"`
	CreatedDateTimeUtc time.Time  `json:"CreatedDateTimeUtc"`
	Device             *RawDevice `json:"Device,omitempty"`
	User               *RawUser   `json:"User,omitempty"`
}

type RawDevice struct {
	DeviceTransactionID int32  `json:"DeviceTransactionId"`
	DeviceID            *int32 `json:"DeviceId"`
}

type RawUser struct {
	UserID    *string `json:"UserId"`
	RunID     string  `json:"RunId"`
	CarrierID *string `json:"CarrierId"`
}

// Client fetches a page of scan events strictly after the given event id.
// afterEventID == "" means "from the beginning". The feed paginates by opaque
// cursor, not by offset; there is no acknowledgement beyond the cursor itself.
type Client interface {
	FetchScanEvents(ctx context.Context, afterEventID string, limit int) ([]RawScanEvent, error)
}
