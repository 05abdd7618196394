package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/provider"
	"github.com/vibast-solutions/ms-go-passes/app/repository"
)

type createOrderRequest interface {
	GetPassType() string
	GetAmount() int64
	GetCustomerName() string
	GetCustomerEmail() string
	GetCustomerPhone() string
	GetTeamId() string
	GetTeamName() string
	GetTeamMembers() []entity.TeamMember
}

type OrderResult struct {
	OrderID          string
	PaymentSessionID string
	Amount           int64
	Currency         string
}

// CreateOrder prices the requested pass, opens a gateway order and records
// the pending payment. Group orders also write their team first so issuance
// can snapshot the roster.
func (s *PaymentService) CreateOrder(ctx context.Context, userID string, req createOrderRequest) (*OrderResult, error) {
	userID = strings.TrimSpace(userID)
	passType := strings.TrimSpace(req.GetPassType())
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	if !entity.KnownPassType(passType) {
		return nil, ErrInvalidPassType
	}

	members := req.GetTeamMembers()
	isGroup := passType == entity.PassTypeGroupEvents
	if isGroup && (len(members) == 0 || strings.TrimSpace(req.GetTeamName()) == "") {
		return nil, ErrInvalidRequest
	}

	expected := s.expectedAmount(passType, len(members))
	if req.GetAmount() != expected {
		return nil, ErrAmountMismatch
	}

	customer := entity.CustomerDetails{
		Name:  strings.TrimSpace(req.GetCustomerName()),
		Email: strings.TrimSpace(req.GetCustomerEmail()),
		Phone: strings.TrimSpace(req.GetCustomerPhone()),
	}
	if customer.Email == "" || customer.Phone == "" {
		return nil, ErrInvalidRequest
	}

	orderID := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	currency := s.currency()

	out, err := s.gateway.CreateOrder(ctx, &provider.CreateOrderInput{
		OrderID:  orderID,
		Amount:   expected,
		Currency: currency,
		Customer: provider.Customer{
			ID:    userID,
			Name:  customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		},
		ReturnURL: s.orderCfg.ReturnURL,
		NotifyURL: s.orderCfg.NotifyURL,
	})
	if err != nil {
		return nil, gatewayErr(err)
	}

	now := s.now()
	var teamID *string
	if isGroup {
		id := strings.TrimSpace(req.GetTeamId())
		if id == "" {
			id = uuid.NewString()
		}
		team := &entity.Team{
			ID:            id,
			TeamName:      strings.TrimSpace(req.GetTeamName()),
			LeaderID:      userID,
			Members:       normalizeMembers(userID, members),
			OrderID:       orderID,
			PaymentStatus: entity.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.teamRepo.Create(ctx, team); err != nil {
			if errors.Is(err, repository.ErrTeamAlreadyExists) {
				return nil, ErrInvalidRequest
			}
			return nil, err
		}
		teamID = &id
	}

	var sessionID *string
	if out.PaymentSessionID != "" {
		sessionID = &out.PaymentSessionID
	}

	payment := &entity.Payment{
		OrderID:          orderID,
		UserID:           userID,
		Amount:           expected,
		Currency:         currency,
		PassType:         passType,
		Status:           entity.PaymentStatusPending,
		TeamID:           teamID,
		PaymentSessionID: sessionID,
		Customer:         customer,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		OrderID:   orderID,
		EventType: entity.PaymentEventOrderCreated,
		Source:    SourceOrder,
		NewStatus: entity.PaymentStatusPending,
		CreatedAt: now,
	})

	return &OrderResult{
		OrderID:          orderID,
		PaymentSessionID: out.PaymentSessionID,
		Amount:           expected,
		Currency:         currency,
	}, nil
}

func (s *PaymentService) expectedAmount(passType string, memberCount int) int64 {
	switch passType {
	case entity.PassTypeDayPass:
		return s.pricing.DayPass
	case entity.PassTypeProshow:
		return s.pricing.Proshow
	case entity.PassTypeSanaConcert:
		return s.pricing.SanaConcert
	case entity.PassTypeGroupEvents:
		return s.pricing.GroupPerMember * int64(memberCount)
	default:
		return 0
	}
}

func (s *PaymentService) currency() string {
	if c := strings.TrimSpace(s.orderCfg.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "INR"
}

// normalizeMembers marks the ordering user as the only leader.
func normalizeMembers(leaderID string, members []entity.TeamMember) []entity.TeamMember {
	out := make([]entity.TeamMember, 0, len(members))
	for _, m := range members {
		m.MemberID = strings.TrimSpace(m.MemberID)
		m.Name = strings.TrimSpace(m.Name)
		m.Phone = strings.TrimSpace(m.Phone)
		m.IsLeader = m.MemberID == leaderID
		m.Attendance = entity.MemberAttendance{}
		out = append(out, m)
	}
	return out
}
