package entity

import "time"

// User is the aggregate root for the account domain.
// Password always holds a bcrypt hash; plaintext never reaches the store.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Bio       string
	Email     string
	Username  string
	Password  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
