package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

var ErrPassAlreadyExists = errors.New("pass already exists for payment")

const passColumns = `
	id, user_id, pass_type, amount, payment_id, status, qr_code, team_snapshot_json, created_at`

type PassRepository struct {
	db DBTX
}

func NewPassRepository(db DBTX) *PassRepository {
	return &PassRepository{db: db}
}

// Create inserts a pass. The passes table has a unique index on payment_id,
// so a second pass for the same order fails with ErrPassAlreadyExists.
func (r *PassRepository) Create(ctx context.Context, pass *entity.Pass) error {
	snapshot, err := nullableJSONValue(pass.TeamSnapshot, pass.TeamSnapshot == nil)
	if err != nil {
		return err
	}

	query := `INSERT INTO passes (` + passColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		pass.ID,
		pass.UserID,
		pass.PassType,
		pass.Amount,
		pass.PaymentID,
		pass.Status,
		pass.QRCode,
		snapshot,
		pass.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPassAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PassRepository) FindByID(ctx context.Context, id string) (*entity.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *PassRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE payment_id = ? LIMIT 1`
	return r.findOne(ctx, query, paymentID)
}

func (r *PassRepository) findOne(ctx context.Context, query string, arg string) (*entity.Pass, error) {
	pass := &entity.Pass{}
	if err := scanPass(r.db.QueryRowContext(ctx, query, arg), pass); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return pass, nil
}

func scanPass(scan rowScanner, pass *entity.Pass) error {
	var snapshot sql.NullString

	err := scan.Scan(
		&pass.ID,
		&pass.UserID,
		&pass.PassType,
		&pass.Amount,
		&pass.PaymentID,
		&pass.Status,
		&pass.QRCode,
		&snapshot,
		&pass.CreatedAt,
	)
	if err != nil {
		return err
	}

	if snapshot.Valid && snapshot.String != "" {
		var ts entity.TeamSnapshot
		if err := json.Unmarshal([]byte(snapshot.String), &ts); err != nil {
			return err
		}
		pass.TeamSnapshot = &ts
	}
	return nil
}
