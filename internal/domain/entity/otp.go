package entity

import "time"

// OTP is a short-lived email-verification code.
// At most one live OTP exists per email; the unique index on email plus an
// atomic upsert enforces it.
type OTP struct {
	ID        string
	Email     string
	Code      string // 6-digit numeric, string form
	CreatedAt time.Time
}
