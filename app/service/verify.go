package service

import (
	"context"
	"errors"
	"strings"
	"time"
)

type verifyPaymentRequest interface {
	GetOrderId() string
}

type manualFixupRequest interface {
	GetOrderId() string
	GetForce() bool
}

// VerifyPayment is the client polling path. The caller must own the order;
// any other caller sees the order as missing.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID string, req verifyPaymentRequest) (*IssueResult, error) {
	started := time.Now()
	orderID := strings.TrimSpace(req.GetOrderId())
	if orderID == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}

	result, err := s.verifyOwned(ctx, orderID, userID)
	s.observe(SourceClientVerify, started, result, err)
	return result, err
}

func (s *PaymentService) verifyOwned(ctx context.Context, orderID, userID string) (*IssueResult, error) {
	payment, err := s.locatePayment(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrPaymentRecordNotFound
	}

	if !payment.IsSuccess() {
		paid, err := s.confirmWithGateway(ctx, orderID, nil)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, ErrPaymentNotSuccessful
		}
	}

	return s.reconcile(ctx, payment, SourceClientVerify, false, nil)
}

// ManualFixup re-runs reconciliation for an order on an operator's request
// and reports every step. With force set the gateway poll is skipped and the
// operator's word is taken as proof of payment.
func (s *PaymentService) ManualFixup(ctx context.Context, req manualFixupRequest) (*FixupReport, error) {
	started := time.Now()
	orderID := strings.TrimSpace(req.GetOrderId())
	report := &FixupReport{OrderID: orderID}
	if orderID == "" {
		report.Error = ErrInvalidRequest.Error()
		return report, ErrInvalidRequest
	}

	tr := &trace{}
	result, err := s.fixup(ctx, orderID, req.GetForce(), tr)
	s.observe(SourceOperator, started, result, err)

	report.Steps = tr.steps
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	report.Success = true
	report.PassID = result.Pass.ID
	report.QRCode = result.Pass.QRCode
	report.AlreadyIssued = result.AlreadyIssued
	return report, nil
}

func (s *PaymentService) fixup(ctx context.Context, orderID string, force bool, tr *trace) (*IssueResult, error) {
	payment, err := s.locatePayment(ctx, orderID, tr)
	if err != nil {
		return nil, err
	}

	switch {
	case payment.IsSuccess():
		tr.add("confirm_payment", StepStatusSkipped, "payment already success")
	case force:
		tr.add("confirm_payment", StepStatusOK, "forced by operator, gateway not polled")
	default:
		paid, err := s.confirmWithGateway(ctx, orderID, tr)
		if err != nil {
			return nil, err
		}
		if !paid {
			tr.add("confirm_payment", StepStatusFailed, "gateway reports order unpaid")
			return nil, ErrPaymentNotSuccessful
		}
		tr.add("confirm_payment", StepStatusOK, "gateway confirmed payment")
	}

	return s.reconcile(ctx, payment, SourceOperator, force && !payment.IsSuccess(), tr)
}

func isNotSuccessful(err error) bool {
	return errors.Is(err, ErrPaymentNotSuccessful)
}
