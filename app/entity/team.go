package entity

import "time"

type Team struct {
	ID string

	TeamName string
	LeaderID string
	Members  []TeamMember

	OrderID       string
	PaymentStatus string
	PassID        *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type TeamMember struct {
	MemberID   string           `json:"memberId"`
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	IsLeader   bool             `json:"isLeader"`
	Attendance MemberAttendance `json:"attendance"`
}

// MemberAttendance is owned by the check-in feature.
type MemberAttendance struct {
	CheckedIn   bool       `json:"checkedIn"`
	CheckInTime *time.Time `json:"checkInTime,omitempty"`
	CheckedInBy *string    `json:"checkedInBy,omitempty"`
}

func (t *Team) Snapshot() *TeamSnapshot {
	members := make([]TeamSnapshotMember, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, TeamSnapshotMember{
			MemberID: m.MemberID,
			Name:     m.Name,
			Phone:    m.Phone,
			IsLeader: m.IsLeader,
		})
	}
	return &TeamSnapshot{
		TeamID:   t.ID,
		TeamName: t.TeamName,
		LeaderID: t.LeaderID,
		Members:  members,
	}
}
