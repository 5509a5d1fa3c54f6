package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notorite/auth-service/internal/domain/entity"
	"github.com/notorite/auth-service/internal/domain/repository"
)

type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepository(pool *pgxpool.Pool) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

func (r *PasswordResetRepository) Create(ctx context.Context, pr *entity.PasswordReset) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO password_resets (user_id, token)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, pr.UserID, pr.Token)
	return row.Scan(&pr.ID, &pr.CreatedAt)
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (*entity.PasswordReset, error) {
	pr := &entity.PasswordReset{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token, created_at
		FROM password_resets
		WHERE token = $1
	`, token)
	if err := row.Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return pr, nil
}

// Redeem consumes the token and updates the owner's password hash in one
// transaction, so a token can never outlive the password change it granted.
func (r *PasswordResetRepository) Redeem(ctx context.Context, token, passwordHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	row := tx.QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token = $1
		RETURNING user_id
	`, token)
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	res, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`, passwordHash, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit(ctx)
}

var _ repository.PasswordResetRepository = (*PasswordResetRepository)(nil)
