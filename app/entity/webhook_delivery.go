package entity

import "time"

const (
	WebhookDeliveryProcessed = "processed"
	WebhookDeliveryIgnored   = "ignored"
	WebhookDeliveryRejected  = "rejected"
	WebhookDeliveryNotFound  = "not_found"
	WebhookDeliveryFailed    = "failed"
)

type WebhookDelivery struct {
	ID uint64

	OrderID *string

	EventType   string
	Signature   string
	Timestamp   string
	PayloadJSON string
	Status      string
	Error       *string

	CreatedAt time.Time
}
