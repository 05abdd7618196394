package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
	"github.com/vibast-solutions/ms-go-passes/app/repository"
	"github.com/vibast-solutions/ms-go-passes/app/service"
	"github.com/vibast-solutions/ms-go-passes/config"
)

type grpcPaymentRepo struct {
	items map[string]*entity.Payment
}

func (r *grpcPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.items[payment.OrderID] = payment
	return nil
}

func (r *grpcPaymentRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	item, ok := r.items[orderID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *grpcPaymentRepo) MarkSuccess(_ context.Context, orderID string, now time.Time) (bool, error) {
	item, ok := r.items[orderID]
	if !ok {
		return false, repository.ErrPaymentNotFound
	}
	if item.Status == entity.PaymentStatusSuccess {
		return false, nil
	}
	item.Status = entity.PaymentStatusSuccess
	item.UpdatedAt = now
	return true, nil
}

func (r *grpcPaymentRepo) ListForReconcile(context.Context, time.Time, time.Time, int32) ([]*entity.Payment, error) {
	return []*entity.Payment{}, nil
}

type grpcPassRepo struct {
	byPayment map[string]*entity.Pass
}

func (r *grpcPassRepo) Create(_ context.Context, pass *entity.Pass) error {
	if _, ok := r.byPayment[pass.PaymentID]; ok {
		return repository.ErrPassAlreadyExists
	}
	r.byPayment[pass.PaymentID] = pass
	return nil
}

func (r *grpcPassRepo) FindByID(_ context.Context, id string) (*entity.Pass, error) {
	for _, item := range r.byPayment {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func (r *grpcPassRepo) FindByPaymentID(_ context.Context, paymentID string) (*entity.Pass, error) {
	return r.byPayment[paymentID], nil
}

type grpcTeamRepo struct{}

func (grpcTeamRepo) Create(context.Context, *entity.Team) error { return nil }

func (grpcTeamRepo) FindByID(context.Context, string) (*entity.Team, error) { return nil, nil }

func (grpcTeamRepo) MarkIssued(context.Context, string, string, string, time.Time) error { return nil }

type grpcEventRepo struct{}

func (grpcEventRepo) Create(context.Context, *entity.PaymentEvent) error { return nil }

type grpcDeliveryRepo struct{}

func (grpcDeliveryRepo) Create(context.Context, *entity.WebhookDelivery) error { return nil }

type grpcGateway struct {
	orderStatus string
	statusErr   error
}

func (g *grpcGateway) CreateOrder(_ context.Context, input *provider.CreateOrderInput) (*provider.CreateOrderOutput, error) {
	return &provider.CreateOrderOutput{GatewayOrderID: input.OrderID}, nil
}

func (g *grpcGateway) GetOrderStatus(_ context.Context, orderID string) (*provider.OrderStatus, error) {
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return &provider.OrderStatus{OrderID: orderID, Status: g.orderStatus}, nil
}

func (g *grpcGateway) GetOrderPayments(context.Context, string) ([]*provider.OrderPayment, error) {
	return nil, nil
}

func (g *grpcGateway) VerifyWebhookSignature(string, []byte, string) bool {
	return false
}

type grpcSigner struct{}

func (grpcSigner) Sign(passID string, _ int) string { return passID + ":0.sig" }

type grpcQR struct{}

func (grpcQR) Render(string) (string, error) { return "data:image/png;base64,qr", nil }

func newGRPCServerForTest(gateway *grpcGateway) (*Server, *grpcPaymentRepo) {
	now := time.Now().UTC()
	payments := &grpcPaymentRepo{items: map[string]*entity.Payment{
		"order_1": {
			OrderID:   "order_1",
			UserID:    "user-1",
			Amount:    500,
			PassType:  entity.PassTypeDayPass,
			Status:    entity.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}}
	passService := service.NewPaymentService(service.Dependencies{
		Payments:   payments,
		Passes:     &grpcPassRepo{byPayment: map[string]*entity.Pass{}},
		Teams:      grpcTeamRepo{},
		Events:     grpcEventRepo{},
		Deliveries: grpcDeliveryRepo{},
		Gateway:    gateway,
		Signer:     grpcSigner{},
		QR:         grpcQR{},
		Pricing:    config.PricingConfig{DayPass: 500},
	})
	return NewServer(passService), payments
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	in, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return in
}

func TestVerifyPaymentInvalidArgument(t *testing.T) {
	srv, _ := newGRPCServerForTest(&grpcGateway{orderStatus: provider.OrderStatusPaid})

	_, err := srv.VerifyPayment(context.Background(), mustStruct(t, map[string]any{"orderId": "order_1"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestVerifyPaymentErrorCodes(t *testing.T) {
	cases := []struct {
		name     string
		gateway  *grpcGateway
		userID   string
		expected codes.Code
	}{
		{name: "foreign order", gateway: &grpcGateway{orderStatus: provider.OrderStatusPaid}, userID: "user-2", expected: codes.NotFound},
		{name: "unpaid", gateway: &grpcGateway{orderStatus: "ACTIVE"}, userID: "user-1", expected: codes.FailedPrecondition},
		{name: "gateway down", gateway: &grpcGateway{statusErr: errors.New("timeout")}, userID: "user-1", expected: codes.Unavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newGRPCServerForTest(tc.gateway)
			_, err := srv.VerifyPayment(context.Background(), mustStruct(t, map[string]any{"orderId": "order_1", "userId": tc.userID}))
			assert.Equal(t, tc.expected, status.Code(err))
		})
	}
}

func TestVerifyPaymentSuccess(t *testing.T) {
	srv, _ := newGRPCServerForTest(&grpcGateway{orderStatus: provider.OrderStatusPaid})

	resp, err := srv.VerifyPayment(context.Background(), mustStruct(t, map[string]any{"orderId": "order_1", "userId": "user-1"}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["success"].GetBoolValue())
	assert.NotEmpty(t, resp.GetFields()["passId"].GetStringValue())
}

func TestManualFixupReturnsReportOnFailure(t *testing.T) {
	srv, _ := newGRPCServerForTest(&grpcGateway{orderStatus: "ACTIVE"})

	resp, err := srv.ManualFixup(context.Background(), mustStruct(t, map[string]any{"orderId": "order_1"}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["success"].GetBoolValue())
	assert.NotEmpty(t, resp.GetFields()["error"].GetStringValue())
	assert.NotEmpty(t, resp.GetFields()["steps"].GetListValue().GetValues())
}

func TestManualFixupOverRegisteredService(t *testing.T) {
	srv, payments := newGRPCServerForTest(&grpcGateway{statusErr: errors.New("gateway down")})

	lis := bufconn.Listen(1 << 20)
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(), RequestIDInterceptor(), LoggingInterceptor()))
	RegisterPassesServiceServer(grpcSrv, srv)
	go func() {
		_ = grpcSrv.Serve(lis)
	}()
	defer grpcSrv.Stop()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := new(structpb.Struct)
	in := mustStruct(t, map[string]any{"orderId": "order_1", "force": true})
	require.NoError(t, conn.Invoke(ctx, "/"+passesServiceName+"/ManualFixup", in, out))
	assert.True(t, out.GetFields()["success"].GetBoolValue(), "forced fixup must succeed without the gateway")
	assert.Equal(t, entity.PaymentStatusSuccess, payments.items["order_1"].Status)

	health := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, "/"+passesServiceName+"/Health", mustStruct(t, map[string]any{}), health))
	assert.Equal(t, "ok", health.GetFields()["status"].GetStringValue())
}
