package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/middleware"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// CachePurger drops cached responses after a write.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// purge drops cached store listings.  Failures are logged, not returned.
func purge(ctx context.Context, p CachePurger, log *zap.Logger) {
	if p == nil {
		return
	}
	if err := p.Purge(ctx); err != nil {
		log.Warn("cache purge failed", zap.Error(err))
	}
}

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.ErrValidation.WithMessage("Invalid request body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}

// caller returns the identity Authenticate stored for this request.
func caller(c echo.Context) (auth.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return auth.Identity{}, apperr.ErrMissingToken
	}
	return id, nil
}

// pathID parses the numeric route parameter name.
func pathID(c echo.Context, name string, notFound *apperr.Error) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, notFound
	}
	return id, nil
}
