package entity

import "time"

// PasswordReset is a one-time capability to set a new password.
// Token is a 32-byte crypto/rand value; the row is deleted on redemption.
type PasswordReset struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
}
