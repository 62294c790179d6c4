package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// DefaultTokenTTL is the validity window of an access token.
const DefaultTokenTTL = 24 * time.Hour

// ErrTokenInvalid is returned by ParseAccessToken for any token that is
// malformed, expired, signed with another key or algorithm, or missing
// the expected claims.
var ErrTokenInvalid = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  The token travels in the Authorization header as a Bearer
// credential.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims is the decoded content of a verified access token.
type AccessClaims struct {
	UserID uint64
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The JWT
// includes the subject (sub) as a decimal string, the role, the
// expiration (exp) and the issued-at time (iat).
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and decodes
// its claims.  Only HMAC signatures are accepted.  The subject may be a
// decimal string or a JSON number.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrTokenInvalid
	}

	var uid uint64
	switch sub := claims["sub"].(type) {
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return AccessClaims{}, ErrTokenInvalid
		}
		uid = n
	case float64:
		if sub < 1 || sub != float64(uint64(sub)) {
			return AccessClaims{}, ErrTokenInvalid
		}
		uid = uint64(sub)
	default:
		return AccessClaims{}, ErrTokenInvalid
	}
	if uid == 0 {
		return AccessClaims{}, ErrTokenInvalid
	}
	role, _ := claims["role"].(string)
	return AccessClaims{UserID: uid, Role: role}, nil
}

// Tokens binds a signing secret and validity window so callers can issue
// and verify tokens without passing configuration around.
type Tokens struct {
	Secret string
	TTL    time.Duration
}

// NewTokens returns a Tokens using DefaultTokenTTL when ttl is not positive.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{Secret: secret, TTL: ttl}
}

// Issue signs a new access token for the user.
func (t *Tokens) Issue(userID uint64, role string) (AccessToken, error) {
	return NewAccessToken(t.Secret, userID, role, t.TTL)
}

// Verify validates raw and returns its claims.
func (t *Tokens) Verify(raw string) (AccessClaims, error) {
	return ParseAccessToken(t.Secret, raw)
}
