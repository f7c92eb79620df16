package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, h.Compare(hash, "correct horse battery"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "wrong"))
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(1).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 10, NewBcryptHasher(10).cost)
}
