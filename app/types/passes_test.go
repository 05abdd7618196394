package types

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateOrderRequestFromContextNormalizes(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/orders", bytes.NewBufferString(`{"passType":" Group_Events ","amount":500,"customer":{"name":" Asha ","email":"asha@example.com ","phone":"9999999999"},"team":{"teamName":" Riff Raff ","members":[{"memberId":"u1","name":"Asha"},null,{"memberId":" u2 ","name":"Ravi "}]}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewCreateOrderRequestFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "group_events", parsed.GetPassType())
	assert.Equal(t, "Asha", parsed.GetCustomerName())
	assert.Equal(t, "asha@example.com", parsed.GetCustomerEmail())
	assert.Equal(t, "Riff Raff", parsed.GetTeamName())

	members := parsed.GetTeamMembers()
	require.Len(t, members, 2)
	assert.Equal(t, "u2", members[1].MemberID)
	assert.Equal(t, "Ravi", members[1].Name)
	assert.NoError(t, parsed.Validate())
}

func TestCreateOrderValidate(t *testing.T) {
	req := &CreateOrderRequest{}
	assert.EqualError(t, req.Validate(), "passType is required")

	req = &CreateOrderRequest{
		PassType: "day_pass",
		Amount:   500,
		Customer: &CustomerInput{Email: "asha@example.com"},
	}
	assert.EqualError(t, req.Validate(), "customer.phone is required")

	req.Customer.Phone = "9999999999"
	assert.NoError(t, req.Validate())

	req.PassType = "group_events"
	assert.EqualError(t, req.Validate(), "team.teamName is required for group passes")
}

func TestNilRequestGetters(t *testing.T) {
	var order *CreateOrderRequest
	assert.Empty(t, order.GetPassType())
	assert.Zero(t, order.GetAmount())
	assert.Nil(t, order.GetTeamMembers())

	var fixup *ManualFixupRequest
	assert.Empty(t, fixup.GetOrderId())
	assert.False(t, fixup.GetForce())

	var webhook *WebhookRequest
	assert.Empty(t, webhook.GetSignature())
	assert.Nil(t, webhook.GetPayload())
}

func TestNewWebhookRequestFromContextKeepsRawBody(t *testing.T) {
	e := echo.New()
	raw := `{"type":"PAYMENT_SUCCESS_WEBHOOK",  "data":{"order":{"order_id":"order_1"}}}`
	req := httptest.NewRequest("POST", "/webhooks/cashfree", bytes.NewBufferString(raw))
	req.Header.Set(HeaderWebhookTimestamp, " 1700000000 ")
	req.Header.Set(HeaderWebhookSignature, "sig")
	ctx := e.NewContext(req, httptest.NewRecorder())

	parsed, err := NewWebhookRequestFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, string(parsed.GetPayload()))
	assert.Equal(t, "1700000000", parsed.GetTimestamp())
	assert.Equal(t, "sig", parsed.GetSignature())
}

func TestNewWebhookRequestFromContextBodyLimit(t *testing.T) {
	e := echo.New()

	atLimit := strings.Repeat("a", MaxWebhookBodyBytes)
	req := httptest.NewRequest("POST", "/webhooks/cashfree", strings.NewReader(atLimit))
	parsed, err := NewWebhookRequestFromContext(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Len(t, parsed.GetPayload(), MaxWebhookBodyBytes)

	overLimit := strings.Repeat("a", MaxWebhookBodyBytes+1)
	req = httptest.NewRequest("POST", "/webhooks/cashfree", strings.NewReader(overLimit))
	_, err = NewWebhookRequestFromContext(e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, ErrWebhookBodyTooLarge)
}

func TestVerifyAndFixupRequestsFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/payments/verify", bytes.NewBufferString(`{"orderId":"  order_1 "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	parsed, err := NewVerifyPaymentRequestFromContext(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "order_1", parsed.GetOrderId())
	assert.NoError(t, parsed.Validate())

	req = httptest.NewRequest("POST", "/admin/payments/fixup", bytes.NewBufferString(`{"orderId":"order_2","force":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	fixup, err := NewManualFixupRequestFromContext(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "order_2", fixup.GetOrderId())
	assert.True(t, fixup.GetForce())

	empty := &ManualFixupRequest{}
	assert.EqualError(t, empty.Validate(), "orderId is required")
}
