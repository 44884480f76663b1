package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4) // min cost keeps the test fast
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pass"))
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
