package middleware // middleware provides shared request processing for handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
)

// IdentityResolver turns a raw bearer token into an identity.
// *auth.Gate implements it.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, raw string) (auth.Identity, error)
}

// Authenticate returns an Echo middleware that resolves the Bearer token
// of every request into an identity and stores it on the context.
// Handlers and downstream middleware read it with CurrentIdentity.
// Failures are returned as errors so the central error handler renders
// them as 401 responses.
func Authenticate(gate IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			id, err := gate.ResolveIdentity(c.Request().Context(), raw)
			if err != nil {
				return err
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}
