package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPaid      = "PAID"
	PaymentStatusSuccess = "SUCCESS"

	WebhookTypePaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
)

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type CreateOrderInput struct {
	OrderID   string
	Amount    int64
	Currency  string
	Customer  Customer
	ReturnURL string
	NotifyURL string
}

type CreateOrderOutput struct {
	GatewayOrderID   string
	PaymentSessionID string
}

type OrderStatus struct {
	OrderID  string
	Status   string
	Amount   decimal.Decimal
	Currency string
}

func (s *OrderStatus) Paid() bool {
	return s != nil && s.Status == OrderStatusPaid
}

type OrderPayment struct {
	CFPaymentID   string
	PaymentStatus string
	Amount        decimal.Decimal
}

func (p *OrderPayment) Successful() bool {
	return p != nil && p.PaymentStatus == PaymentStatusSuccess
}

// GatewayError is returned when the gateway answers with a non-2xx status.
type GatewayError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: status=%d body=%s", e.Operation, e.StatusCode, e.Body)
}

type Gateway interface {
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error)
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
	GetOrderPayments(ctx context.Context, orderID string) ([]*OrderPayment, error)
	VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool
}
