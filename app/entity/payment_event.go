package entity

import "time"

const (
	PaymentEventOrderCreated     = "order_created"
	PaymentEventPaymentConfirmed = "payment_confirmed"
	PaymentEventPassIssued       = "pass_issued"
)

type PaymentEvent struct {
	ID uint64

	OrderID string

	EventType string
	Source    string

	OldStatus *string
	NewStatus string

	PayloadJSON *string

	CreatedAt time.Time
}
