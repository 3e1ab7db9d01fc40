package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.NoError(t, ps.Verify(hash, "correct horse battery staple"))
	assert.ErrorIs(t, ps.Verify(hash, "wrong"), ErrPasswordMismatch)
}

func TestPasswordHash_SaltedPerCall(t *testing.T) {
	ps := NewPasswordServiceForTest()

	h1, err := ps.Hash("same password")
	require.NoError(t, err)
	h2, err := ps.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "each hash gets a fresh salt")
	assert.NoError(t, ps.Verify(h1, "same password"))
	assert.NoError(t, ps.Verify(h2, "same password"))
}

func TestPasswordVerify_ParametersFromHash(t *testing.T) {
	// A hash produced with one parameter set still verifies through a
	// service configured differently.
	hash, err := NewPasswordServiceForTest().Hash("pw")
	require.NoError(t, err)
	assert.NoError(t, NewPasswordService().Verify(hash, "pw"))
}

func TestPasswordVerify_Malformed(t *testing.T) {
	ps := NewPasswordServiceForTest()
	assert.Error(t, ps.Verify("not-a-hash", "pw"))
	assert.Error(t, ps.Verify("$bcrypt$whatever", "pw"))
}
