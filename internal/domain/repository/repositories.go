package repository

import (
	"context"
	"errors"

	"github.com/notorite/auth-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// OTPRepository defines persistence for email-verification codes.
// Upsert replaces any existing code for the email in a single statement.
type OTPRepository interface {
	Upsert(ctx context.Context, o *entity.OTP) error
	GetByEmail(ctx context.Context, email string) (*entity.OTP, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// PasswordResetRepository defines persistence for one-time reset tokens.
// Redeem deletes the token row and updates the owning user's password hash
// in one transaction; it returns ErrNotFound if the token is already gone.
type PasswordResetRepository interface {
	Create(ctx context.Context, pr *entity.PasswordReset) error
	GetByToken(ctx context.Context, token string) (*entity.PasswordReset, error)
	Redeem(ctx context.Context, token, passwordHash string) error
}
