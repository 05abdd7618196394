package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
)

type handleWebhookRequest interface {
	GetTimestamp() string
	GetSignature() string
	GetPayload() []byte
}

type WebhookResult struct {
	Status        string
	OrderID       string
	PassID        string
	AlreadyIssued bool
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"data"`
}

// HandleWebhook authenticates a gateway delivery and reconciles the order it
// names. Deliveries that are ignored or name an unknown order are reported
// through the result, not as errors, so the gateway stops retrying them.
func (s *PaymentService) HandleWebhook(ctx context.Context, req handleWebhookRequest) (*WebhookResult, error) {
	started := time.Now()
	payload := req.GetPayload()
	timestamp := strings.TrimSpace(req.GetTimestamp())
	signature := strings.TrimSpace(req.GetSignature())

	if timestamp == "" || signature == "" {
		s.recordDelivery(ctx, req, nil, "", entity.WebhookDeliveryRejected, "missing signature headers")
		return nil, ErrMalformedWebhook
	}
	if !s.gateway.VerifyWebhookSignature(timestamp, payload, signature) {
		s.recordDelivery(ctx, req, nil, "", entity.WebhookDeliveryRejected, ErrSignatureMismatch.Error())
		return nil, ErrSignatureMismatch
	}

	var parsed webhookPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		s.recordDelivery(ctx, req, nil, "", entity.WebhookDeliveryRejected, "invalid json: "+err.Error())
		return nil, ErrMalformedWebhook
	}

	eventType := strings.TrimSpace(parsed.Type)
	if eventType != provider.WebhookTypePaymentSuccess {
		s.recordDelivery(ctx, req, nil, eventType, entity.WebhookDeliveryIgnored, "")
		return &WebhookResult{Status: entity.WebhookDeliveryIgnored}, nil
	}

	orderID := strings.TrimSpace(parsed.Data.Order.OrderID)
	if orderID == "" {
		s.recordDelivery(ctx, req, nil, eventType, entity.WebhookDeliveryRejected, "missing order id")
		return nil, ErrMalformedWebhook
	}

	payment, err := s.locatePayment(ctx, orderID, nil)
	if err != nil {
		if errors.Is(err, ErrPaymentRecordNotFound) {
			s.recordDelivery(ctx, req, &orderID, eventType, entity.WebhookDeliveryNotFound, err.Error())
			s.observe(SourceWebhook, started, nil, err)
			return &WebhookResult{Status: entity.WebhookDeliveryNotFound, OrderID: orderID}, nil
		}
		s.recordDelivery(ctx, req, &orderID, eventType, entity.WebhookDeliveryFailed, err.Error())
		s.observe(SourceWebhook, started, nil, err)
		return nil, err
	}

	result, err := s.reconcile(ctx, payment, SourceWebhook, false, nil)
	s.observe(SourceWebhook, started, result, err)
	if err != nil {
		s.recordDelivery(ctx, req, &orderID, eventType, entity.WebhookDeliveryFailed, err.Error())
		return nil, err
	}

	s.recordDelivery(ctx, req, &orderID, eventType, entity.WebhookDeliveryProcessed, "")
	return &WebhookResult{
		Status:        entity.WebhookDeliveryProcessed,
		OrderID:       orderID,
		PassID:        result.Pass.ID,
		AlreadyIssued: result.AlreadyIssued,
	}, nil
}

func (s *PaymentService) recordDelivery(
	ctx context.Context,
	req handleWebhookRequest,
	orderID *string,
	eventType string,
	status string,
	reason string,
) {
	s.metrics.WebhookDelivery(status)

	var errPtr *string
	if reason = strings.TrimSpace(reason); reason != "" {
		trimmed := truncate(reason, 1024)
		errPtr = &trimmed
	}

	_ = s.deliveryRepo.Create(ctx, &entity.WebhookDelivery{
		OrderID:     orderID,
		EventType:   eventType,
		Signature:   truncate(strings.TrimSpace(req.GetSignature()), 255),
		Timestamp:   truncate(strings.TrimSpace(req.GetTimestamp()), 32),
		PayloadJSON: string(req.GetPayload()),
		Status:      status,
		Error:       errPtr,
		CreatedAt:   s.now(),
	})
}
