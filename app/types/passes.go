package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

const (
	HeaderWebhookTimestamp = "x-webhook-timestamp"
	HeaderWebhookSignature = "x-webhook-signature"

	MaxWebhookBodyBytes = 1 << 20
)

var ErrWebhookBodyTooLarge = errors.New("webhook body too large")

type CustomerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type TeamMemberInput struct {
	MemberId string `json:"memberId"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type TeamInput struct {
	TeamId   string             `json:"teamId"`
	TeamName string             `json:"teamName"`
	Members  []*TeamMemberInput `json:"members"`
}

type CreateOrderRequest struct {
	PassType string         `json:"passType"`
	Amount   int64          `json:"amount"`
	Customer *CustomerInput `json:"customer"`
	Team     *TeamInput     `json:"team,omitempty"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.PassType = strings.ToLower(strings.TrimSpace(body.PassType))
	if body.Customer != nil {
		body.Customer.Name = strings.TrimSpace(body.Customer.Name)
		body.Customer.Email = strings.TrimSpace(body.Customer.Email)
		body.Customer.Phone = strings.TrimSpace(body.Customer.Phone)
	}
	if body.Team != nil {
		body.Team.TeamId = strings.TrimSpace(body.Team.TeamId)
		body.Team.TeamName = strings.TrimSpace(body.Team.TeamName)
	}

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.GetPassType() == "" {
		return errors.New("passType is required")
	}
	if r.GetAmount() <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.GetCustomerEmail() == "" {
		return errors.New("customer.email is required")
	}
	if r.GetCustomerPhone() == "" {
		return errors.New("customer.phone is required")
	}
	if r.GetPassType() == entity.PassTypeGroupEvents {
		if r.GetTeamName() == "" {
			return errors.New("team.teamName is required for group passes")
		}
		if len(r.GetTeamMembers()) == 0 {
			return errors.New("team.members is required for group passes")
		}
	}
	return nil
}

func (r *CreateOrderRequest) GetPassType() string {
	if r == nil {
		return ""
	}
	return r.PassType
}

func (r *CreateOrderRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *CreateOrderRequest) GetCustomerName() string {
	if r == nil || r.Customer == nil {
		return ""
	}
	return r.Customer.Name
}

func (r *CreateOrderRequest) GetCustomerEmail() string {
	if r == nil || r.Customer == nil {
		return ""
	}
	return r.Customer.Email
}

func (r *CreateOrderRequest) GetCustomerPhone() string {
	if r == nil || r.Customer == nil {
		return ""
	}
	return r.Customer.Phone
}

func (r *CreateOrderRequest) GetTeamId() string {
	if r == nil || r.Team == nil {
		return ""
	}
	return r.Team.TeamId
}

func (r *CreateOrderRequest) GetTeamName() string {
	if r == nil || r.Team == nil {
		return ""
	}
	return r.Team.TeamName
}

func (r *CreateOrderRequest) GetTeamMembers() []entity.TeamMember {
	if r == nil || r.Team == nil {
		return nil
	}
	members := make([]entity.TeamMember, 0, len(r.Team.Members))
	for _, m := range r.Team.Members {
		if m == nil {
			continue
		}
		members = append(members, entity.TeamMember{
			MemberID: strings.TrimSpace(m.MemberId),
			Name:     strings.TrimSpace(m.Name),
			Phone:    strings.TrimSpace(m.Phone),
		})
	}
	return members
}

type CreateOrderResponse struct {
	OrderId          string `json:"orderId"`
	PaymentSessionId string `json:"paymentSessionId"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

type VerifyPaymentRequest struct {
	OrderId string `json:"orderId"`
}

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	var body VerifyPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)
	return &body, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("orderId is required")
	}
	return nil
}

func (r *VerifyPaymentRequest) GetOrderId() string {
	if r == nil {
		return ""
	}
	return r.OrderId
}

type VerifyPaymentResponse struct {
	Success       bool   `json:"success"`
	PassId        string `json:"passId"`
	QrCode        string `json:"qrCode"`
	AlreadyIssued bool   `json:"alreadyIssued"`
}

// WebhookRequest keeps the body as raw bytes; the signature covers them
// exactly as received.
type WebhookRequest struct {
	Timestamp string
	Signature string
	Payload   []byte
}

func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, MaxWebhookBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxWebhookBodyBytes {
		return nil, ErrWebhookBodyTooLarge
	}

	return &WebhookRequest{
		Timestamp: strings.TrimSpace(ctx.Request().Header.Get(HeaderWebhookTimestamp)),
		Signature: strings.TrimSpace(ctx.Request().Header.Get(HeaderWebhookSignature)),
		Payload:   payload,
	}, nil
}

func (r *WebhookRequest) GetTimestamp() string {
	if r == nil {
		return ""
	}
	return r.Timestamp
}

func (r *WebhookRequest) GetSignature() string {
	if r == nil {
		return ""
	}
	return r.Signature
}

func (r *WebhookRequest) GetPayload() []byte {
	if r == nil {
		return nil
	}
	return r.Payload
}

type WebhookResponse struct {
	Ok     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
}

type ManualFixupRequest struct {
	OrderId string `json:"orderId"`
	Force   bool   `json:"force"`
}

func NewManualFixupRequestFromContext(ctx echo.Context) (*ManualFixupRequest, error) {
	var body ManualFixupRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(body.OrderId)
	return &body, nil
}

func (r *ManualFixupRequest) Validate() error {
	if r.GetOrderId() == "" {
		return errors.New("orderId is required")
	}
	return nil
}

func (r *ManualFixupRequest) GetOrderId() string {
	if r == nil {
		return ""
	}
	return r.OrderId
}

func (r *ManualFixupRequest) GetForce() bool {
	if r == nil {
		return false
	}
	return r.Force
}

type FixupStep struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type FixupResponse struct {
	OrderId       string       `json:"orderId"`
	Success       bool         `json:"success"`
	PassId        string       `json:"passId,omitempty"`
	QrCode        string       `json:"qrCode,omitempty"`
	AlreadyIssued bool         `json:"alreadyIssued"`
	Error         string       `json:"error,omitempty"`
	Steps         []*FixupStep `json:"steps"`
}

type GetPassRequest struct {
	Id string
}

func NewGetPassRequestFromContext(ctx echo.Context) (*GetPassRequest, error) {
	return &GetPassRequest{Id: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetPassRequest) Validate() error {
	if r.GetId() == "" {
		return errors.New("id is required")
	}
	return nil
}

func (r *GetPassRequest) GetId() string {
	if r == nil {
		return ""
	}
	return r.Id
}

type TeamSnapshotMember struct {
	MemberId string `json:"memberId"`
	Name     string `json:"name"`
	IsLeader bool   `json:"isLeader"`
}

type TeamSnapshot struct {
	TeamId   string                `json:"teamId"`
	TeamName string                `json:"teamName"`
	LeaderId string                `json:"leaderId"`
	Members  []*TeamSnapshotMember `json:"members"`
}

type Pass struct {
	Id           string        `json:"id"`
	UserId       string        `json:"userId"`
	PassType     string        `json:"passType"`
	Amount       int64         `json:"amount"`
	PaymentId    string        `json:"paymentId"`
	Status       string        `json:"status"`
	QrCode       string        `json:"qrCode"`
	TeamSnapshot *TeamSnapshot `json:"teamSnapshot,omitempty"`
	CreatedAt    string        `json:"createdAt"`
}

type PassEnvelopeResponse struct {
	Pass *Pass `json:"pass"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
