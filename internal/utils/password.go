package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds enforced on registration and password changes.
const (
	PasswordMinLen = 8
	PasswordMaxLen = 16
)

const passwordSpecials = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// PasswordPolicyOK reports whether plain is 8–16 characters long and
// contains at least one uppercase letter and one special character.
func PasswordPolicyOK(plain string) bool {
	n := len([]rune(plain))
	if n < PasswordMinLen || n > PasswordMaxLen {
		return false
	}
	var upper, special bool
	for _, r := range plain {
		if unicode.IsUpper(r) {
			upper = true
		}
		if strings.ContainsRune(passwordSpecials, r) {
			special = true
		}
	}
	return upper && special
}
