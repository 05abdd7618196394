package service

import (
	"context"
	"time"
)

// RunReconcileBatch re-checks payments the webhook path may have missed:
// successful orders that never got a pass first, then pending orders past
// the stale threshold but younger than the max age.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := s.now()
	before := now.Add(-s.jobsCfg.ReconcileStaleAfter)
	notBefore := now.Add(-s.reconcileMaxAge())
	items, err := s.paymentRepo.ListForReconcile(ctx, notBefore, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, payment := range items {
		if payment == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return keepFirstErr(firstErr, err)
		}

		started := time.Now()
		result, err := s.sweepOne(ctx, payment.OrderID)
		s.observe(SourceSweep, started, result, err)
		if err != nil && !isNotSuccessful(err) {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *PaymentService) sweepOne(ctx context.Context, orderID string) (*IssueResult, error) {
	payment, err := s.locatePayment(ctx, orderID, nil)
	if err != nil {
		return nil, err
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

	return s.reconcile(ctx, payment, SourceSweep, false, nil)
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
