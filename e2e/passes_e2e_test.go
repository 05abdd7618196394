//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vibast-solutions/ms-go-passes/app/types"
)

const (
	defaultPassesHTTPBase  = "http://localhost:48081"
	defaultPassesGRPCAddr  = "localhost:49091"
	defaultPassesJWTSecret = "passes-e2e-jwt-secret"

	passesGRPCService = "/passes.v1.PassesService/"
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) do(t *testing.T, method, path string, body []byte, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, bodyBytes
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var raw []byte
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		raw = data
	}
	return c.do(t, method, path, raw, headers)
}

func bearerFor(t *testing.T, userID string) map[string]string {
	t.Helper()
	secret := os.Getenv("PASSES_JWT_SECRET")
	if secret == "" {
		secret = defaultPassesJWTSecret
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + signed}
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func dialPassesGRPC(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	return conn
}

func grpcContextWithAPIKey(apiKey string) context.Context {
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", fmt.Sprintf("e2e-grpc-%d", time.Now().UnixNano()))
	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey)
	}
	return ctx
}

func invokeStruct(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, passesGRPCService+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func TestPassesE2E(t *testing.T) {
	httpBase := os.Getenv("PASSES_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultPassesHTTPBase
	}
	grpcAddr := os.Getenv("PASSES_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = defaultPassesGRPCAddr
	}

	require.NoError(t, waitForHTTP(httpBase, 30*time.Second))
	require.NoError(t, waitForGRPC(grpcAddr, 30*time.Second))

	client := newHTTPClient(httpBase)
	conn := dialPassesGRPC(t, grpcAddr)
	defer conn.Close()

	t.Run("HTTPWebhookMissingHeaders", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/webhooks/cashfree", []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	})

	t.Run("HTTPWebhookForgedSignature", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/webhooks/cashfree", []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"order_e2e"}}}`), map[string]string{
			types.HeaderWebhookTimestamp: "1700000000",
			types.HeaderWebhookSignature: "forged",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(body))
	})

	t.Run("HTTPVerifyRequiresBearer", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/payments/verify", map[string]any{"orderId": "order_e2e"}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("HTTPVerifyUnknownOrder", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments/verify", map[string]any{"orderId": "order_missing"}, bearerFor(t, "user-e2e"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
	})

	t.Run("HTTPCreateOrderAmountMismatch", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/orders", map[string]any{
			"passType": "day_pass",
			"amount":   1,
			"customer": map[string]any{"name": "E2E", "email": "e2e@example.com", "phone": "9999999999"},
		}, bearerFor(t, "user-e2e"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	})

	t.Run("HTTPGetPassNotFound", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodGet, "/passes/does-not-exist", nil, bearerFor(t, "user-e2e"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("HTTPFixupUnauthorizedMissingAPIKey", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/admin/payments/fixup", map[string]any{"orderId": "order_missing"}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("HTTPFixupForbiddenInsufficientAccess", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/admin/payments/fixup", map[string]any{"orderId": "order_missing"}, map[string]string{"X-API-Key": passesNoAccessAPIKey()})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("HTTPFixupUnknownOrder", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/admin/payments/fixup", map[string]any{"orderId": "order_missing"}, map[string]string{"X-API-Key": passesCallerAPIKey()})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
		var report types.FixupResponse
		require.NoError(t, json.Unmarshal(body, &report), string(body))
		assert.False(t, report.Success)
		assert.NotEmpty(t, report.Steps)
	})

	t.Run("GRPCUnauthorizedMissingAPIKey", func(t *testing.T) {
		_, err := invokeStruct(grpcContextWithAPIKey(""), conn, "Health", map[string]any{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err), "%v", err)
	})

	t.Run("GRPCForbiddenInsufficientAccess", func(t *testing.T) {
		_, err := invokeStruct(grpcContextWithAPIKey(passesNoAccessAPIKey()), conn, "Health", map[string]any{})
		assert.Equal(t, codes.PermissionDenied, status.Code(err), "%v", err)
	})

	t.Run("GRPCHealth", func(t *testing.T) {
		out, err := invokeStruct(grpcContextWithAPIKey(passesCallerAPIKey()), conn, "Health", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "ok", out.GetFields()["status"].GetStringValue())
	})

	t.Run("GRPCVerifyValidation", func(t *testing.T) {
		_, err := invokeStruct(grpcContextWithAPIKey(passesCallerAPIKey()), conn, "VerifyPayment", map[string]any{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "%v", err)
	})

	t.Run("GRPCFixupUnknownOrder", func(t *testing.T) {
		out, err := invokeStruct(grpcContextWithAPIKey(passesCallerAPIKey()), conn, "ManualFixup", map[string]any{"orderId": "order_missing"})
		require.NoError(t, err)
		assert.False(t, out.GetFields()["success"].GetBoolValue())
	})
}
