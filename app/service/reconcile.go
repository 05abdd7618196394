package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/metrics"
	"github.com/vibast-solutions/ms-go-passes/app/notify"
	"github.com/vibast-solutions/ms-go-passes/app/qrcode"
	"github.com/vibast-solutions/ms-go-passes/app/repository"
)

const forcedPayload = `{"forced":true}`

const (
	StepStatusOK      = "ok"
	StepStatusSkipped = "skipped"
	StepStatusFailed  = "failed"
)

type IssueResult struct {
	OrderID       string
	Pass          *entity.Pass
	AlreadyIssued bool
}

type FixupStep struct {
	Name   string
	Status string
	Detail string
}

type FixupReport struct {
	OrderID       string
	Success       bool
	PassID        string
	QRCode        string
	AlreadyIssued bool
	Error         string
	Steps         []FixupStep
}

// trace collects the steps of one reconcile run. A nil trace discards them.
type trace struct {
	steps []FixupStep
}

func (t *trace) add(name, status, detail string) {
	if t == nil {
		return
	}
	t.steps = append(t.steps, FixupStep{Name: name, Status: status, Detail: detail})
}

func (s *PaymentService) locatePayment(ctx context.Context, orderID string, tr *trace) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		tr.add("locate_payment", StepStatusFailed, err.Error())
		return nil, err
	}
	if payment == nil {
		tr.add("locate_payment", StepStatusFailed, "no payment record for order")
		return nil, ErrPaymentRecordNotFound
	}
	tr.add("locate_payment", StepStatusOK, fmt.Sprintf("status=%s pass_type=%s", payment.Status, payment.PassType))
	return payment, nil
}

// confirmWithGateway reports whether the gateway considers the order paid:
// an order status of PAID, or any payment attempt in SUCCESS.
func (s *PaymentService) confirmWithGateway(ctx context.Context, orderID string, tr *trace) (bool, error) {
	status, err := s.gateway.GetOrderStatus(ctx, orderID)
	if err != nil {
		tr.add("gateway_order_status", StepStatusFailed, err.Error())
		return false, gatewayErr(err)
	}
	if status.Paid() {
		tr.add("gateway_order_status", StepStatusOK, "order status "+status.Status)
		return true, nil
	}
	if status != nil {
		tr.add("gateway_order_status", StepStatusSkipped, "order status "+status.Status)
	}

	payments, err := s.gateway.GetOrderPayments(ctx, orderID)
	if err != nil {
		tr.add("gateway_order_payments", StepStatusFailed, err.Error())
		return false, gatewayErr(err)
	}
	for _, p := range payments {
		if p.Successful() {
			tr.add("gateway_order_payments", StepStatusOK, "successful payment "+p.CFPaymentID)
			return true, nil
		}
	}
	tr.add("gateway_order_payments", StepStatusFailed, fmt.Sprintf("no successful payment among %d attempts", len(payments)))
	return false, nil
}

// reconcile runs the shared part of every entry point once the caller has
// established that the order is paid: advance the payment to success, then
// return the existing pass or issue exactly one new pass. forced marks a
// confirmation taken on an operator's word.
func (s *PaymentService) reconcile(ctx context.Context, payment *entity.Payment, source string, forced bool, tr *trace) (*IssueResult, error) {
	now := s.now()
	logger := s.logger.WithFields(logrus.Fields{
		"order_id": payment.OrderID,
		"source":   source,
	})

	if payment.IsSuccess() {
		tr.add("advance_status", StepStatusSkipped, "already success")
	} else {
		changed, err := s.paymentRepo.MarkSuccess(ctx, payment.OrderID, now)
		if err != nil {
			tr.add("advance_status", StepStatusFailed, err.Error())
			if errors.Is(err, repository.ErrPaymentNotFound) {
				return nil, ErrPaymentRecordNotFound
			}
			return nil, err
		}
		oldStatus := payment.Status
		payment.Status = entity.PaymentStatusSuccess
		payment.UpdatedAt = now
		if changed {
			tr.add("advance_status", StepStatusOK, "pending -> success")
			event := &entity.PaymentEvent{
				OrderID:   payment.OrderID,
				EventType: entity.PaymentEventPaymentConfirmed,
				Source:    source,
				OldStatus: &oldStatus,
				NewStatus: entity.PaymentStatusSuccess,
				CreatedAt: now,
			}
			if forced {
				detail := forcedPayload
				event.PayloadJSON = &detail
				logger.Warn("payment confirmed by operator without gateway check")
			}
			_ = s.eventRepo.Create(ctx, event)
		} else {
			tr.add("advance_status", StepStatusSkipped, "concurrently advanced")
		}
	}

	existing, err := s.findIssuedPass(ctx, logger, payment.OrderID)
	if err != nil {
		tr.add("check_existing_pass", StepStatusFailed, err.Error())
		return nil, err
	}
	if existing != nil {
		tr.add("check_existing_pass", StepStatusOK, "pass "+existing.ID+" already issued")
		return &IssueResult{OrderID: payment.OrderID, Pass: existing, AlreadyIssued: true}, nil
	}
	tr.add("check_existing_pass", StepStatusOK, "no pass issued yet")

	return s.issuePass(ctx, logger, payment, source, tr)
}

func (s *PaymentService) findIssuedPass(ctx context.Context, logger logrus.FieldLogger, orderID string) (*entity.Pass, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, orderID)
		if err != nil {
			logger.WithError(err).Warn("pass cache lookup failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	pass, err := s.passRepo.FindByPaymentID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pass != nil {
		s.cachePass(ctx, logger, pass)
	}
	return pass, nil
}

func (s *PaymentService) issuePass(
	ctx context.Context,
	logger logrus.FieldLogger,
	payment *entity.Payment,
	source string,
	tr *trace,
) (*IssueResult, error) {
	now := s.now()
	passID := uuid.NewString()

	payload, err := qrcode.Payload{
		PassID:   passID,
		UserID:   payment.UserID,
		PassType: payment.PassType,
		Token:    s.signer.Sign(passID, s.expiryDays()),
	}.Encode()
	if err != nil {
		tr.add("render_qr", StepStatusFailed, err.Error())
		return nil, err
	}
	qrCode, err := s.qr.Render(payload)
	if err != nil {
		tr.add("render_qr", StepStatusFailed, err.Error())
		return nil, err
	}
	tr.add("render_qr", StepStatusOK, "")

	pass := &entity.Pass{
		ID:        passID,
		UserID:    payment.UserID,
		PassType:  payment.PassType,
		Amount:    payment.Amount,
		PaymentID: payment.OrderID,
		Status:    entity.PassStatusPaid,
		QRCode:    qrCode,
		CreatedAt: now,
	}

	var team *entity.Team
	if payment.IsGroup() && payment.TeamID != nil {
		team = s.loadTeam(ctx, logger, *payment.TeamID, tr)
		if team != nil {
			pass.TeamSnapshot = team.Snapshot()
		}
	}

	if err := s.passRepo.Create(ctx, pass); err != nil {
		if !errors.Is(err, repository.ErrPassAlreadyExists) {
			tr.add("create_pass", StepStatusFailed, err.Error())
			return nil, err
		}

		winner, findErr := s.passRepo.FindByPaymentID(ctx, payment.OrderID)
		if findErr != nil {
			tr.add("create_pass", StepStatusFailed, findErr.Error())
			return nil, findErr
		}
		if winner == nil {
			tr.add("create_pass", StepStatusFailed, "duplicate pass reported but none found")
			return nil, err
		}
		tr.add("create_pass", StepStatusSkipped, "lost race, pass "+winner.ID+" already issued")
		s.cachePass(ctx, logger, winner)
		return &IssueResult{OrderID: payment.OrderID, Pass: winner, AlreadyIssued: true}, nil
	}
	tr.add("create_pass", StepStatusOK, "pass "+pass.ID)

	if team != nil {
		if err := s.teamRepo.MarkIssued(ctx, team.ID, pass.ID, entity.PaymentStatusSuccess, now); err != nil {
			logger.WithError(err).WithField("team_id", team.ID).Warn("team update after issuance failed")
			tr.add("update_team", StepStatusFailed, err.Error())
		} else {
			tr.add("update_team", StepStatusOK, "team "+team.ID)
		}
	}

	s.cachePass(ctx, logger, pass)
	s.metrics.PassIssued(pass.PassType)

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		OrderID:   payment.OrderID,
		EventType: entity.PaymentEventPassIssued,
		Source:    source,
		NewStatus: payment.Status,
		CreatedAt: now,
	})

	if s.notifier != nil {
		s.notifier.NotifyPassIssued(ctx, notify.PassIssuedNotification{Pass: pass, Payment: payment})
		tr.add("notify", StepStatusOK, "dispatched")
	} else {
		tr.add("notify", StepStatusSkipped, "no notifier configured")
	}

	logger.WithField("pass_id", pass.ID).Info("pass issued")
	return &IssueResult{OrderID: payment.OrderID, Pass: pass}, nil
}

func (s *PaymentService) loadTeam(ctx context.Context, logger logrus.FieldLogger, teamID string, tr *trace) *entity.Team {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		logger.WithError(err).WithField("team_id", teamID).Warn("team lookup failed, issuing pass without roster")
		tr.add("load_team", StepStatusFailed, err.Error())
		return nil
	}
	if team == nil {
		logger.WithField("team_id", teamID).Warn("team not found, issuing pass without roster")
		tr.add("load_team", StepStatusFailed, "team "+teamID+" not found")
		return nil
	}
	tr.add("load_team", StepStatusOK, fmt.Sprintf("team %s with %d members", team.ID, len(team.Members)))
	return team
}

func (s *PaymentService) cachePass(ctx context.Context, logger logrus.FieldLogger, pass *entity.Pass) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, pass); err != nil {
		logger.WithError(err).Warn("pass cache write failed")
	}
}

func outcomeFor(result *IssueResult, err error) string {
	switch {
	case err == nil && result != nil && result.AlreadyIssued:
		return metrics.OutcomeAlreadyIssued
	case err == nil:
		return metrics.OutcomeIssued
	case errors.Is(err, ErrPaymentNotSuccessful):
		return metrics.OutcomeNotSuccessful
	case errors.Is(err, ErrPaymentRecordNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

func (s *PaymentService) observe(source string, started time.Time, result *IssueResult, err error) {
	s.metrics.ObserveReconcile(source, outcomeFor(result, err), started)
}
