package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/auth"
)

// Require returns a middleware that admits the request only when the
// identity stored by Authenticate satisfies req.  For SelfOrRole the
// target id is read from the route parameter req.Param().  It must run
// after Authenticate; without an identity the request is rejected as
// unauthenticated.
func Require(req auth.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return apperr.ErrMissingToken
			}
			var target string
			if p := req.Param(); p != "" {
				target = c.Param(p)
			}
			if err := auth.Authorize(id, req, target).Err(); err != nil {
				return err
			}
			return next(c)
		}
	}
}
