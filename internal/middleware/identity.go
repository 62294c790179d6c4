package middleware

// identity.go holds the context keys shared across middleware files and
// handlers.  Authenticate stores the resolved identity under identityKey
// and the decimal user id under "user_id" for the cache and rate limit
// keys.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
)

const identityKey = "identity"

// SetIdentity stores id on the request context.
func SetIdentity(c echo.Context, id auth.Identity) {
	c.Set(identityKey, id)
	c.Set("user_id", strconv.FormatUint(id.ID, 10))
	c.Set("role", string(id.Role))
}

// CurrentIdentity returns the identity stored by Authenticate.
func CurrentIdentity(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// userID returns the caller's id for key building, "anon" when the
// request is not authenticated.
func userID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
