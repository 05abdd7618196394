package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-passes/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

const paymentColumns = `
	order_id, user_id, amount, currency, pass_type, status,
	team_id, payment_session_id,
	customer_name, customer_email, customer_phone,
	created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.PassType,
		payment.Status,
		nullableStringValue(payment.TeamID),
		nullableStringValue(payment.PaymentSessionID),
		payment.Customer.Name,
		payment.Customer.Email,
		payment.Customer.Phone,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}
	return nil
}

// MarkSuccess moves a pending payment to success. It reports whether this
// call performed the transition; a payment already in success is left alone.
func (r *PaymentRepository) MarkSuccess(ctx context.Context, orderID string, now time.Time) (bool, error) {
	query := `
		UPDATE payments SET status = ?, updated_at = ?
		WHERE order_id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query, entity.PaymentStatusSuccess, now, orderID, entity.PaymentStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	existing, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, ErrPaymentNotFound
	}
	return false, nil
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = ?`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, orderID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

// ListForReconcile returns successful payments that never got a pass, then
// payments still pending that were created between notBefore and before.
// Pending orders older than notBefore are abandoned and never listed.
func (r *PaymentRepository) ListForReconcile(ctx context.Context, notBefore, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT ` + prefixedPaymentColumns + `
		FROM payments p
		LEFT JOIN passes ps ON ps.payment_id = p.order_id
		WHERE ps.id IS NULL
		  AND (p.status = ? OR (p.status = ? AND p.created_at >= ? AND p.created_at <= ?))
		ORDER BY (p.status = ?) DESC, p.created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(
		ctx,
		query,
		entity.PaymentStatusSuccess,
		entity.PaymentStatusPending,
		notBefore,
		before,
		entity.PaymentStatusSuccess,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

const prefixedPaymentColumns = `
	p.order_id, p.user_id, p.amount, p.currency, p.pass_type, p.status,
	p.team_id, p.payment_session_id,
	p.customer_name, p.customer_email, p.customer_phone,
	p.created_at, p.updated_at`

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var teamID sql.NullString
	var sessionID sql.NullString

	err := scan.Scan(
		&payment.OrderID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.PassType,
		&payment.Status,
		&teamID,
		&sessionID,
		&payment.Customer.Name,
		&payment.Customer.Email,
		&payment.Customer.Phone,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.TeamID = stringPtrFromNull(teamID)
	payment.PaymentSessionID = stringPtrFromNull(sessionID)
	return nil
}
