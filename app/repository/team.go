package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamAlreadyExists = errors.New("team already exists")
)

type TeamRepository struct {
	db DBTX
}

func NewTeamRepository(db DBTX) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *entity.Team) error {
	members, err := serializeJSON(team.Members)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO teams (
			id, team_name, leader_id, members_json, order_id, payment_status, pass_id, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		team.ID,
		team.TeamName,
		team.LeaderID,
		members,
		team.OrderID,
		team.PaymentStatus,
		nullableStringValue(team.PassID),
		team.CreatedAt,
		team.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTeamAlreadyExists
		}
		return err
	}
	return nil
}

// MarkIssued touches only the payment columns; members_json belongs to the
// check-in feature once the team exists.
func (r *TeamRepository) MarkIssued(ctx context.Context, teamID, passID, paymentStatus string, now time.Time) error {
	query := `UPDATE teams SET pass_id = ?, payment_status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passID, paymentStatus, now, teamID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *TeamRepository) FindByID(ctx context.Context, id string) (*entity.Team, error) {
	query := `
		SELECT id, team_name, leader_id, members_json, order_id, payment_status, pass_id, created_at, updated_at
		FROM teams
		WHERE id = ?
	`

	team := &entity.Team{}
	var members string
	var passID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.TeamName,
		&team.LeaderID,
		&members,
		&team.OrderID,
		&team.PaymentStatus,
		&passID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if members != "" {
		if err := json.Unmarshal([]byte(members), &team.Members); err != nil {
			return nil, err
		}
	}
	team.PassID = stringPtrFromNull(passID)
	return team, nil
}
