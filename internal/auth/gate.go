// Package auth resolves bearer tokens into identities and decides whether
// an identity may perform an operation.
//
// A request moves through Unauthenticated -> Authenticating ->
// {Authenticated, Rejected}, then Authenticated -> {Authorized,
// Forbidden}.  ResolveIdentity covers the first transition and
// Authorize the second; Rejected maps to 401 and Forbidden to 403.
package auth

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/model"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/utils"
)

// Identity is the authenticated caller as currently stored.
type Identity struct {
	ID    uint64     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (utils.AccessClaims, error)
}

// IdentityLookup reads accounts from the credential store.  It returns
// repository.ErrUserNotFound for an unknown id.
type IdentityLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Gate authenticates bearer tokens.
type Gate struct {
	tokens TokenVerifier
	users  IdentityLookup
}

// NewGate returns a Gate verifying tokens with tokens and loading
// identities from users.
func NewGate(tokens TokenVerifier, users IdentityLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// ResolveIdentity turns a raw bearer token into the caller's identity.
//
// The token only supplies the subject id; email, name and role are read
// fresh from the credential store so that a role change or deletion takes
// effect on the next request even while older tokens are still valid.
func (g *Gate) ResolveIdentity(ctx context.Context, raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, apperr.ErrMissingToken
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return Identity{}, apperr.ErrInvalidToken
	}
	u, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Identity{}, apperr.ErrUnknownIdentity
		}
		return Identity{}, pkgerrors.Wrap(err, "load identity")
	}
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.  It
// returns "" when the header is empty or uses another scheme.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
