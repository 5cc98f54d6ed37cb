package models

import "time"

// Нормализованные типы событий сканирования (фиксированный словарь фида).
const (
	KindUnknown  = "UNKNOWN"
	KindStatus   = "STATUS"
	KindPickup   = "PICKUP"
	KindDelivery = "DELIVERY"
)

const (
	StatusUnknown        = "UNKNOWN"
	StatusOrderReceived  = "ORDER_RECEIVED"
	StatusPreparing      = "PREPARING"
	StatusInTransit      = "IN_TRANSIT"
	StatusOutForDelivery = "OUT_FOR_DELIVERY"
	StatusDispatched     = "DISPATCHED"
	StatusDelivered      = "DELIVERED"
)

type ScanEvent struct {
	EventID    string
	ParcelID   int64
	Kind       string
	StatusCode string
	OccurredAt time.Time
	RunID      string
	DeviceID   *int32
	UserID     *string
	CarrierID  *string
}

// IsUnknown reports whether the event carries a vocabulary value the feed
// sent but we do not recognize. Such events are filtered, never persisted.
func (e ScanEvent) IsUnknown() bool {
	return e.Kind == KindUnknown || e.StatusCode == StatusUnknown
}

type ParcelScan struct {
	ParcelID       int64
	TrackingNumber string
	PickupAt       *time.Time
	DeliveryAt     *time.Time
	LastEventID    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Cursor struct {
	LastProcessedEventID *string
	LastProcessedAt      time.Time
}
