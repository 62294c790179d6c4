package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/repository"
)

func TestErrorHandler(t *testing.T) {
	e := newEcho()
	e.GET("/internal", func(echo.Context) error {
		return pkgerrors.Wrap(errors.New("dial tcp 10.0.0.5:3306: connection refused"), "load store")
	})
	e.GET("/app", func(echo.Context) error {
		return apperr.ErrConcurrentModification.WithCause(errors.New("deadlock"))
	})
	e.GET("/auth", func(echo.Context) error {
		return apperr.ErrForbidden.WithDetails("role user is not allowed")
	})
	e.GET("/committed", func(c echo.Context) error {
		_ = c.String(http.StatusAccepted, "done")
		return errors.New("late failure")
	})

	rec := do(e, http.MethodGet, "/internal", "", 0, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	rec = do(e, http.MethodGet, "/app", "", 0, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONCURRENT_MODIFICATION", decode(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "deadlock")

	rec = do(e, http.MethodGet, "/auth", "", 0, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, decode(t, rec).Errors)

	rec = do(e, http.MethodGet, "/missing", "", 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP_ERROR", decode(t, rec).Code)

	rec = do(e, http.MethodGet, "/committed", "", 0, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestLookupErr(t *testing.T) {
	assert.NoError(t, lookupErr(nil, "x"))
	assert.ErrorIs(t, lookupErr(repository.ErrUserNotFound, "x"), apperr.ErrUserNotFound)
	assert.ErrorIs(t, lookupErr(repository.ErrStoreNotFound, "x"), apperr.ErrStoreNotFound)

	err := lookupErr(errors.New("boom"), "list stores")
	_, isApp := apperr.As(err)
	assert.False(t, isApp)
	assert.EqualError(t, err, "list stores: boom")
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()

	assert.NoError(t, v.Validate(&updateUserReq{}))
	assert.NoError(t, v.Validate(&updateUserReq{Role: strPtr("storeOwner"), Password: strPtr(goodPass)}))

	err := v.Validate(&updateUserReq{Role: strPtr(""), Email: strPtr("bad")})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code())
	assert.ElementsMatch(t, []string{"Invalid role specified", "Please provide a valid email address"}, appErr.Details())

	err = v.Validate(&updateStoreReq{Address: strPtr("")})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Address must not be empty"}, appErr.Details())

	err = v.Validate(&loginReq{Email: "a@example.com"})
	appErr, _ = apperr.As(err)
	assert.Equal(t, []string{"Password is required"}, appErr.Details())
}
