package entity

import "time"

const PassStatusPaid = "paid"

type Pass struct {
	ID string

	UserID   string
	PassType string
	Amount   int64

	// PaymentID is the gateway order id that produced the pass. At most one
	// pass exists per PaymentID.
	PaymentID string
	Status    string
	QRCode    string

	TeamSnapshot *TeamSnapshot

	CreatedAt time.Time
}

// TeamSnapshot is copied onto a pass at issuance and never updated after.
type TeamSnapshot struct {
	TeamID   string               `json:"teamId"`
	TeamName string               `json:"teamName"`
	LeaderID string               `json:"leaderId"`
	Members  []TeamSnapshotMember `json:"members"`
}

type TeamSnapshotMember struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsLeader bool   `json:"isLeader"`
}
