package entity

import "time"

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
	DeliveryDropped   DeliveryStatus = "DROPPED"
)

// Delivery is the outcome of handing one aggregated payload to the remote
// service.
type Delivery struct {
	CorrelationID string
	LogID         string
	Level         Level
	Status        DeliveryStatus
	At            time.Time
}
