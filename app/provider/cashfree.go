package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CashfreeConfig struct {
	BaseURL       string
	AppID         string
	SecretKey     string
	WebhookSecret string
	APIVersion    string
	HTTPTimeout   time.Duration
}

type CashfreeGateway struct {
	cfg    CashfreeConfig
	client *http.Client
}

func NewCashfreeGateway(cfg CashfreeConfig) *CashfreeGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2023-08-01"
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		cfg.WebhookSecret = cfg.SecretKey
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &CashfreeGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cashfreeCreateOrderRequest struct {
	OrderID         string             `json:"order_id"`
	OrderAmount     json.Number        `json:"order_amount"`
	OrderCurrency   string             `json:"order_currency"`
	CustomerDetails cashfreeCustomer   `json:"customer_details"`
	OrderMeta       *cashfreeOrderMeta `json:"order_meta,omitempty"`
}

type cashfreeOrder struct {
	CFOrderID        interface{} `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	OrderStatus      string      `json:"order_status"`
	OrderAmount      json.Number `json:"order_amount"`
	OrderCurrency    string      `json:"order_currency"`
	PaymentSessionID string      `json:"payment_session_id"`
}

type cashfreePayment struct {
	CFPaymentID   interface{} `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PaymentAmount json.Number `json:"payment_amount"`
}

func (g *CashfreeGateway) CreateOrder(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error) {
	if strings.TrimSpace(g.cfg.AppID) == "" || strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, errors.New("gateway credentials are not configured")
	}

	reqBody := cashfreeCreateOrderRequest{
		OrderID:       input.OrderID,
		OrderAmount:   json.Number(decimal.NewFromInt(input.Amount).StringFixed(2)),
		OrderCurrency: strings.ToUpper(strings.TrimSpace(input.Currency)),
		CustomerDetails: cashfreeCustomer{
			CustomerID:    input.Customer.ID,
			CustomerName:  input.Customer.Name,
			CustomerEmail: input.Customer.Email,
			CustomerPhone: input.Customer.Phone,
		},
	}
	if input.ReturnURL != "" || input.NotifyURL != "" {
		reqBody.OrderMeta = &cashfreeOrderMeta{
			ReturnURL: expandOrderPlaceholder(input.ReturnURL, input.OrderID),
			NotifyURL: input.NotifyURL,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	body, err := g.do(ctx, "create_order", http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, err
	}

	var order cashfreeOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.PaymentSessionID) == "" {
		return nil, errors.New("gateway response is missing payment_session_id")
	}

	gatewayOrderID := strings.TrimSpace(order.OrderID)
	if gatewayOrderID == "" {
		gatewayOrderID = input.OrderID
	}

	return &CreateOrderOutput{
		GatewayOrderID:   gatewayOrderID,
		PaymentSessionID: order.PaymentSessionID,
	}, nil
}

func (g *CashfreeGateway) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	body, err := g.do(ctx, "get_order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	var order cashfreeOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, err
	}

	return &OrderStatus{
		OrderID:  order.OrderID,
		Status:   strings.ToUpper(strings.TrimSpace(order.OrderStatus)),
		Amount:   parseAmount(order.OrderAmount),
		Currency: order.OrderCurrency,
	}, nil
}

func (g *CashfreeGateway) GetOrderPayments(ctx context.Context, orderID string) ([]*OrderPayment, error) {
	body, err := g.do(ctx, "get_order_payments", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payments", nil)
	if err != nil {
		return nil, err
	}

	var items []cashfreePayment
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}

	result := make([]*OrderPayment, 0, len(items))
	for _, item := range items {
		result = append(result, &OrderPayment{
			CFPaymentID:   parseStringish(item.CFPaymentID),
			PaymentStatus: strings.ToUpper(strings.TrimSpace(item.PaymentStatus)),
			Amount:        parseAmount(item.PaymentAmount),
		})
	}
	return result, nil
}

func (g *CashfreeGateway) VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool {
	return VerifyWebhookSignature(timestamp, rawBody, signature, g.cfg.WebhookSecret)
}

// VerifyWebhookSignature checks signature against HMAC-SHA256(secret,
// timestamp+rawBody). The gateway has been seen sending both base64 and hex
// encodings, so either is accepted.
func VerifyWebhookSignature(timestamp string, rawBody []byte, signature string, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || strings.TrimSpace(timestamp) == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	if candidate, err := base64.StdEncoding.DecodeString(signature); err == nil && hmac.Equal(candidate, expected) {
		return true
	}
	if candidate, err := hex.DecodeString(signature); err == nil && hmac.Equal(candidate, expected) {
		return true
	}
	return false
}

func (g *CashfreeGateway) do(ctx context.Context, operation, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", g.cfg.AppID)
	req.Header.Set("x-client-secret", g.cfg.SecretKey)
	req.Header.Set("x-api-version", g.cfg.APIVersion)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

func expandOrderPlaceholder(rawURL, orderID string) string {
	return strings.ReplaceAll(rawURL, "{order_id}", url.QueryEscape(orderID))
}

func parseAmount(raw json.Number) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func parseStringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
