package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("12345678")
	require.NoError(t, err)
	assert.NotEqual(t, "12345678", hash)

	assert.True(t, CompareHashAndPassword(hash, "12345678"))
	assert.False(t, CompareHashAndPassword(hash, "wrong0000"))
	assert.False(t, CompareHashAndPassword("not-a-hash", "12345678"))
}
