package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
	"github.com/vibast-solutions/ms-go-passes/app/service"
	"github.com/vibast-solutions/ms-go-passes/app/types"
)

func PassToResponse(item *entity.Pass) *types.Pass {
	if item == nil {
		return nil
	}

	return &types.Pass{
		Id:           item.ID,
		UserId:       item.UserID,
		PassType:     item.PassType,
		Amount:       item.Amount,
		PaymentId:    item.PaymentID,
		Status:       item.Status,
		QrCode:       item.QRCode,
		TeamSnapshot: teamSnapshotToResponse(item.TeamSnapshot),
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func teamSnapshotToResponse(item *entity.TeamSnapshot) *types.TeamSnapshot {
	if item == nil {
		return nil
	}

	members := make([]*types.TeamSnapshotMember, 0, len(item.Members))
	for _, m := range item.Members {
		members = append(members, &types.TeamSnapshotMember{
			MemberId: m.MemberID,
			Name:     m.Name,
			IsLeader: m.IsLeader,
		})
	}

	return &types.TeamSnapshot{
		TeamId:   item.TeamID,
		TeamName: item.TeamName,
		LeaderId: item.LeaderID,
		Members:  members,
	}
}

func IssueResultToVerifyResponse(result *service.IssueResult) *types.VerifyPaymentResponse {
	if result == nil || result.Pass == nil {
		return &types.VerifyPaymentResponse{}
	}
	return &types.VerifyPaymentResponse{
		Success:       true,
		PassId:        result.Pass.ID,
		QrCode:        result.Pass.QRCode,
		AlreadyIssued: result.AlreadyIssued,
	}
}

func FixupReportToResponse(report *service.FixupReport) *types.FixupResponse {
	if report == nil {
		return nil
	}

	steps := make([]*types.FixupStep, 0, len(report.Steps))
	for _, step := range report.Steps {
		steps = append(steps, &types.FixupStep{
			Name:   step.Name,
			Status: step.Status,
			Detail: step.Detail,
		})
	}

	return &types.FixupResponse{
		OrderId:       report.OrderID,
		Success:       report.Success,
		PassId:        report.PassID,
		QrCode:        report.QRCode,
		AlreadyIssued: report.AlreadyIssued,
		Error:         report.Error,
		Steps:         steps,
	}
}

func OrderResultToResponse(result *service.OrderResult) *types.CreateOrderResponse {
	if result == nil {
		return nil
	}
	return &types.CreateOrderResponse{
		OrderId:          result.OrderID,
		PaymentSessionId: result.PaymentSessionID,
		Amount:           result.Amount,
		Currency:         result.Currency,
	}
}
