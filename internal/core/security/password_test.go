package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", hash)

	assert.NoError(t, h.Check(hash, "Secret123"))
	assert.ErrorIs(t, h.Check(hash, "wrong"), ErrPasswordMismatch)
}

func TestPasswordHashing_Salted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("Secret123")
	require.NoError(t, err)
	b, err := h.Hash("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewHasher_OutOfRangeCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(99).cost)
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     error
	}{
		{"ok", "Password1", nil},
		{"too short", "Pass1", ErrPasswordTooShort},
		{"no digit", "Password", ErrPasswordNoDigit},
		{"no uppercase", "password1", ErrPasswordNoUpper},
		{"72 bytes", "A1" + strings.Repeat("x", 70), nil},
		{"73 bytes", "A1" + strings.Repeat("x", 71), ErrPasswordTooLong},
		{"multibyte over 72 bytes", "A1" + strings.Repeat("é", 70), ErrPasswordTooLong},
		{"short multibyte", "Ä1éé", ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tc.password)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidatePasswordStrength_AcceptedPasswordsHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	longest := "Ä12" + strings.Repeat("é", 34)
	require.Len(t, longest, MaxPasswordBytes)
	require.NoError(t, ValidatePasswordStrength(longest))

	_, err := h.Hash(longest)
	assert.NoError(t, err)
}

func TestRandomPassword(t *testing.T) {
	p := RandomPassword()
	assert.Len(t, p, 32)
	assert.NotContains(t, p, "-")
	assert.NotEqual(t, p, RandomPassword())
}
