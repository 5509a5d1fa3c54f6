package helpers

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResetToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := NewResetToken()
		require.NoError(t, err)
		require.Len(t, token, 64)

		_, err = hex.DecodeString(token)
		require.NoError(t, err)

		assert.False(t, seen[token], "token repeated")
		seen[token] = true
	}
}
