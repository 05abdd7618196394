package entity

import "time"

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
)

const (
	PassTypeDayPass     = "day_pass"
	PassTypeGroupEvents = "group_events"
	PassTypeProshow     = "proshow"
	PassTypeSanaConcert = "sana_concert"
)

type CustomerDetails struct {
	Name  string
	Email string
	Phone string
}

// Payment is keyed by the gateway order id. Status only ever moves from
// pending to success.
type Payment struct {
	OrderID string

	UserID   string
	Amount   int64
	Currency string
	PassType string
	Status   string

	TeamID           *string
	PaymentSessionID *string

	Customer CustomerDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Payment) IsSuccess() bool {
	return p.Status == PaymentStatusSuccess
}

func (p *Payment) IsGroup() bool {
	return p.PassType == PassTypeGroupEvents
}

func KnownPassType(passType string) bool {
	switch passType {
	case PassTypeDayPass, PassTypeGroupEvents, PassTypeProshow, PassTypeSanaConcert:
		return true
	default:
		return false
	}
}
