package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Secret@123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Secret@123", hash)
	assert.True(t, VerifyPassword(hash, "Secret@123"))
	assert.False(t, VerifyPassword(hash, "secret@123"))
}

func TestPasswordPolicyOK(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Admin@123456", true},
		{"Ab#defgh", true},
		{"Abcdefg#", true},
		{"Ab#", false},              // too short
		{"Abcdefghijklmno#x", false}, // 17 chars
		{"abcdefg#", false},         // no uppercase
		{"Abcdefgh", false},         // no special
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PasswordPolicyOK(tt.in), tt.in)
	}
}
