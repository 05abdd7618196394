package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vibast-solutions/ms-go-passes/app/mapper"
	"github.com/vibast-solutions/ms-go-passes/app/service"
	"github.com/vibast-solutions/ms-go-passes/app/types"
)

const passesServiceName = "passes.v1.PassesService"

// PassesServiceServer is the internal operations API. Messages are
// google.protobuf.Struct so callers need no generated stubs.
type PassesServiceServer interface {
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ManualFixup(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var PassesServiceDesc = grpc.ServiceDesc{
	ServiceName: passesServiceName,
	HandlerType: (*PassesServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", PassesServiceServer.Health)},
		{MethodName: "VerifyPayment", Handler: unaryHandler("VerifyPayment", PassesServiceServer.VerifyPayment)},
		{MethodName: "ManualFixup", Handler: unaryHandler("ManualFixup", PassesServiceServer.ManualFixup)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "passes/v1/passes.proto",
}

func RegisterPassesServiceServer(registrar grpc.ServiceRegistrar, srv PassesServiceServer) {
	registrar.RegisterService(&PassesServiceDesc, srv)
}

func unaryHandler(
	method string,
	call func(PassesServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PassesServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + passesServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PassesServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type Server struct {
	passService *service.PaymentService
}

func NewServer(passService *service.PaymentService) *Server {
	return &Server{passService: passService}
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "ok"})
}

// VerifyPayment runs the client verify path on behalf of userId.
func (s *Server) VerifyPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req := &types.VerifyPaymentRequest{OrderId: stringField(in, "orderId")}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	userID := stringField(in, "userId")
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "userId is required")
	}

	result, err := s.passService.VerifyPayment(ctx, userID, req)
	if err != nil {
		return nil, errorToStatus(l, "Verify payment failed", err)
	}

	resp := mapper.IssueResultToVerifyResponse(result)
	return structpb.NewStruct(map[string]any{
		"success":       resp.Success,
		"passId":        resp.PassId,
		"qrCode":        resp.QrCode,
		"alreadyIssued": resp.AlreadyIssued,
	})
}

// ManualFixup always answers with the step report once the request is
// valid; the report carries success and the failure reason.
func (s *Server) ManualFixup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req := &types.ManualFixupRequest{
		OrderId: stringField(in, "orderId"),
		Force:   in.GetFields()["force"].GetBoolValue(),
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := s.passService.ManualFixup(ctx, req)
	if err != nil {
		l.WithError(err).WithField("order_id", req.GetOrderId()).Warn("Manual fixup did not issue a pass")
	}
	if report == nil {
		return nil, errorToStatus(l, "Manual fixup failed", err)
	}

	return fixupReportToStruct(mapper.FixupReportToResponse(report))
}

func fixupReportToStruct(report *types.FixupResponse) (*structpb.Struct, error) {
	steps := make([]any, 0, len(report.Steps))
	for _, step := range report.Steps {
		steps = append(steps, map[string]any{
			"name":   step.Name,
			"status": step.Status,
			"detail": step.Detail,
		})
	}

	return structpb.NewStruct(map[string]any{
		"orderId":       report.OrderId,
		"success":       report.Success,
		"passId":        report.PassId,
		"qrCode":        report.QrCode,
		"alreadyIssued": report.AlreadyIssued,
		"error":         report.Error,
		"steps":         steps,
	})
}

func errorToStatus(l logrus.FieldLogger, message string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidPassType), errors.Is(err, service.ErrAmountMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPaymentRecordNotFound), errors.Is(err, service.ErrPassNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrPaymentNotSuccessful):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrGateway):
		return status.Error(codes.Unavailable, "payment gateway unavailable")
	default:
		l.WithError(err).Error(message)
		return status.Error(codes.Internal, "internal server error")
	}
}

func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(in.GetFields()[name].GetStringValue())
}
