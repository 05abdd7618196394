package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidPassType       = errors.New("invalid pass type")
	ErrAmountMismatch        = errors.New("amount does not match pass price")
	ErrSignatureMismatch     = errors.New("webhook signature mismatch")
	ErrMalformedWebhook      = errors.New("malformed webhook")
	ErrPaymentRecordNotFound = errors.New("payment record not found")
	ErrPaymentNotSuccessful  = errors.New("payment not successful")
	ErrGateway               = errors.New("payment gateway error")
	ErrPassNotFound          = errors.New("pass not found")
)

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %w", ErrGateway, err)
}
