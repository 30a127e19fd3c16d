package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	paymentserrors "pawwalk/internal/payments/errors"
	sqlitedb "pawwalk/pkg/db/sqlite"
	"pawwalk/pkg/model"
)

const paymentColumns = `id, booking_id, amount, currency, payer_id, payee_id, status, gateway_ref,
	refunded_amount, failure_code, failure_message, version, timestamp, updated_at`

type sqlitePaymentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLitePaymentRepository(db *sql.DB) PaymentRepository {
	return &sqlitePaymentRepository{db: db, now: time.Now}
}

func (r *sqlitePaymentRepository) Save(ctx context.Context, payment *model.Payment) error {
	stamp(payment, r.now())
	current := payment.Version
	next := current + 1

	if current == 0 {
		_, err := r.db.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			payment.ID, payment.BookingID, payment.Amount, payment.Currency, payment.PayerID,
			payment.PayeeID, string(payment.Status), payment.GatewayRef, payment.RefundedAmount,
			payment.FailureCode, payment.FailureMessage, next,
			sqlitedb.ToMillis(payment.Timestamp), sqlitedb.ToMillis(payment.UpdatedAt),
		)
		if err != nil {
			if sqlitedb.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s already exists", paymentserrors.ErrVersionConflict, payment.ID)
			}
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		payment.Version = next
		return nil
	}

	result, err := r.db.ExecContext(ctx, `UPDATE payments SET
			status = ?, gateway_ref = ?, refunded_amount = ?, failure_code = ?, failure_message = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(payment.Status), payment.GatewayRef, payment.RefundedAmount, payment.FailureCode,
		payment.FailureMessage, next, sqlitedb.ToMillis(payment.UpdatedAt),
		payment.ID, current,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s at version %d", paymentserrors.ErrVersionConflict, payment.ID, current)
	}

	payment.Version = next
	return nil
}

func (r *sqlitePaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	payment, err := scanPayment(row)
	if err != nil {
		if sqlitedb.IsNoRows(err) {
			return nil, paymentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return payment, nil
}

func (r *sqlitePaymentRepository) FindStale(ctx context.Context, status model.PaymentStatus, before time.Time, limit int) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE status = ? AND updated_at < ? ORDER BY updated_at ASC LIMIT ?`,
		string(status), sqlitedb.ToMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*model.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row sqlitedb.Scanner) (*model.Payment, error) {
	var (
		p                    model.Payment
		status               string
		timestamp, updatedAt int64
	)
	if err := row.Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.PayerID, &p.PayeeID, &status, &p.GatewayRef,
		&p.RefundedAmount, &p.FailureCode, &p.FailureMessage, &p.Version, &timestamp, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	p.Timestamp = sqlitedb.FromMillis(timestamp)
	p.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	return &p, nil
}
