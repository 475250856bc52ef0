package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, h.Verify(hash, "s3cret-pw"))
	assert.False(t, h.Verify(hash, "S3cret-pw"))
}

func TestBcryptHasher_FailsClosed(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("", "anything"))
	assert.False(t, h.Verify("plain-text-password", "plain-text-password"))
	hash, err := h.Hash("x")
	require.NoError(t, err)
	assert.False(t, h.Verify(hash, ""))
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost)
	assert.Equal(t, 12, NewBcryptHasher(12).Cost)
}

func TestGenerateTempPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := generateTempPassword()
		require.NoError(t, err)
		assert.Len(t, pw, TempPasswordLength)
		for _, c := range pw {
			assert.Contains(t, tempPasswordAlphabet, string(c))
		}
		seen[pw] = true
	}
	assert.Len(t, seen, 20)
}
