package helpers

import (
	"crypto/rand"
	"encoding/hex"
)

// NewResetToken returns a 32-byte crypto/rand token rendered as hex, used
// as the one-time password-reset capability.
func NewResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
