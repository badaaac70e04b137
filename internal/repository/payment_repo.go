package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymclub/internal/model"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (user_id, monto, metodo_pago, comprobante_url, estado)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 RETURNING id, created_at`,
		p.UserID, p.Monto, p.MetodoPago, p.ComprobanteURL, p.Estado).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return model.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, monto, metodo_pago, COALESCE(comprobante_url, ''), estado, created_at
		 FROM payments WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	defer rows.Close()

	payments := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Monto, &p.MetodoPago, &p.ComprobanteURL, &p.Estado, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]model.PaymentWithProfile, error) {
	return r.listJoined(ctx, ``)
}

// ListPending returns transfer payments awaiting validation, oldest last.
func (r *PaymentRepository) ListPending(ctx context.Context) ([]model.PaymentWithProfile, error) {
	return r.listJoined(ctx, `WHERE p.estado = 'pending'`)
}

func (r *PaymentRepository) listJoined(ctx context.Context, where string) ([]model.PaymentWithProfile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.user_id, p.monto, p.metodo_pago, COALESCE(p.comprobante_url, ''), p.estado, p.created_at,
		        pr.nombre, pr.dni
		 FROM payments p
		 JOIN profiles pr ON pr.id = p.user_id `+where+`
		 ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]model.PaymentWithProfile, 0)
	for rows.Next() {
		var p model.PaymentWithProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Monto, &p.MetodoPago, &p.ComprobanteURL, &p.Estado, &p.CreatedAt,
			&p.Nombre, &p.DNI); err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, estado model.PaymentState) (model.Payment, error) {
	var p model.Payment
	err := r.pool.QueryRow(ctx,
		`UPDATE payments SET estado = $2 WHERE id = $1
		 RETURNING id, user_id, monto, metodo_pago, COALESCE(comprobante_url, ''), estado, created_at`,
		id, estado).
		Scan(&p.ID, &p.UserID, &p.Monto, &p.MetodoPago, &p.ComprobanteURL, &p.Estado, &p.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Payment{}, model.ErrPaymentNotFound
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	return p, nil
}
