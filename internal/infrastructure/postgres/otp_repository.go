package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notorite/auth-service/internal/domain/entity"
	"github.com/notorite/auth-service/internal/domain/repository"
)

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Upsert installs the code for the email, replacing any live one. A single
// statement keyed on the email unique index keeps concurrent requests from
// leaving two codes behind.
func (r *OTPRepository) Upsert(ctx context.Context, o *entity.OTP) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO otps (email, code)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, created_at = now()
		RETURNING id, created_at
	`, o.Email, o.Code)
	return row.Scan(&o.ID, &o.CreatedAt)
}

func (r *OTPRepository) GetByEmail(ctx context.Context, email string) (*entity.OTP, error) {
	o := &entity.OTP{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, code, created_at
		FROM otps
		WHERE email = $1
	`, email)
	if err := row.Scan(&o.ID, &o.Email, &o.Code, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *OTPRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE email = $1`, email)
	return err
}

var _ repository.OTPRepository = (*OTPRepository)(nil)
