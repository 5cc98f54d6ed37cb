package messages

import "time"

// ParcelUpdated is published after a committed processing cycle for every
// parcel aggregate the cycle created or changed.
type ParcelUpdated struct {
	ParcelID       int64      `json:"parcel_id"`
	TrackingNumber string     `json:"tracking_number"`
	PickupAt       *time.Time `json:"pickup_at,omitempty"`
	DeliveryAt     *time.Time `json:"delivery_at,omitempty"`
	LastEventID    *string    `json:"last_event_id,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
