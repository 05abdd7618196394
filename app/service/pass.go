package service

import (
	"context"
	"strings"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

func (s *PaymentService) GetPass(ctx context.Context, userID, passID string) (*entity.Pass, error) {
	passID = strings.TrimSpace(passID)
	if passID == "" {
		return nil, ErrInvalidRequest
	}

	pass, err := s.passRepo.FindByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if pass == nil || pass.UserID != userID {
		return nil, ErrPassNotFound
	}
	return pass, nil
}
