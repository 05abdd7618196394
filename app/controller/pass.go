package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-passes/app/auth"
	"github.com/vibast-solutions/ms-go-passes/app/factory"
	"github.com/vibast-solutions/ms-go-passes/app/mapper"
	"github.com/vibast-solutions/ms-go-passes/app/service"
	"github.com/vibast-solutions/ms-go-passes/app/types"
)

type PassController struct {
	passService *service.PaymentService
	logger      logrus.FieldLogger
}

func NewPassController(passService *service.PaymentService) *PassController {
	return &PassController{
		passService: passService,
		logger:      factory.NewModuleLogger("passes-controller"),
	}
}

func (c *PassController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PassController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.passService.CreateOrder(ctx.Request().Context(), auth.UserIDFromContext(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidPassType), errors.Is(err, service.ErrAmountMismatch):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrGateway):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create gateway order failed")
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create order failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, mapper.OrderResultToResponse(result))
}

// HandleWebhook answers 200 for every delivery the gateway should stop
// retrying, including orders this service does not know yet.
func (c *PassController) HandleWebhook(ctx echo.Context) error {
	req, err := types.NewWebhookRequestFromContext(ctx)
	if err != nil {
		if errors.Is(err, types.ErrWebhookBodyTooLarge) {
			return c.writeError(ctx, http.StatusRequestEntityTooLarge, err.Error())
		}
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	result, err := c.passService.HandleWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedWebhook):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSignatureMismatch):
			return c.writeError(ctx, http.StatusUnauthorized, "invalid signature")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookResponse{Ok: true, Status: result.Status})
}

func (c *PassController) VerifyPayment(ctx echo.Context) error {
	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.passService.VerifyPayment(ctx.Request().Context(), auth.UserIDFromContext(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotSuccessful):
			return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "payment not successful", Retryable: true})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentRecordNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment record not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Verify payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, mapper.IssueResultToVerifyResponse(result))
}

func (c *PassController) ManualFixup(ctx echo.Context) error {
	req, err := types.NewManualFixupRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	report, err := c.passService.ManualFixup(ctx.Request().Context(), req)
	status := http.StatusOK
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrPaymentNotSuccessful):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrPaymentRecordNotFound):
			status = http.StatusNotFound
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("order_id", req.GetOrderId()).Error("Manual fixup failed")
			status = http.StatusInternalServerError
		}
	}

	return ctx.JSON(status, mapper.FixupReportToResponse(report))
}

func (c *PassController) GetPass(ctx echo.Context) error {
	req, err := types.NewGetPassRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	pass, err := c.passService.GetPass(ctx.Request().Context(), auth.UserIDFromContext(ctx), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrPassNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "pass not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get pass failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PassEnvelopeResponse{Pass: mapper.PassToResponse(pass)})
}

func (c *PassController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
