package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gymclub/internal/model"
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, email, nombre, dni, fecha_vencimiento, rol, status, created_at, updated_at`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Nombre, &p.DNI, &p.FechaVencimiento, &p.Role, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile by id: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p model.Profile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO profiles (id, email, nombre, dni, fecha_vencimiento, rol, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Email, p.Nombre, p.DNI, p.FechaVencimiento, p.Role, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, nombre string, dni string) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles SET nombre = $2, dni = $3, updated_at = $4
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, strings.TrimSpace(nombre), strings.TrimSpace(dni), time.Now().UTC()))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// UpdateExpiry is the administrative expiry-date correction.
func (r *ProfileRepository) UpdateExpiry(ctx context.Context, id string, fechaVencimiento time.Time) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles SET fecha_vencimiento = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, fechaVencimiento, time.Now().UTC()))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("update expiry: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY nombre`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// Search matches members by name or national id, case-insensitively.
func (r *ProfileRepository) Search(ctx context.Context, query string) ([]model.Profile, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE nombre ILIKE $1 OR dni ILIKE $1
		 ORDER BY nombre`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// ListEmails returns the addresses of every active member, used for email
// broadcasts.
func (r *ProfileRepository) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT email FROM profiles WHERE status AND email <> '' ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func collectProfiles(rows pgx.Rows) ([]model.Profile, error) {
	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
