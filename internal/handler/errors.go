package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/apperr"
	"github.com/iliyamo/store-rating/internal/repository"
)

// ErrorHandler returns the echo.HTTPErrorHandler that renders every error
// in the error envelope.  Application errors keep their status and code,
// echo errors become HTTP_ERROR, and anything else is logged and hidden
// behind a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if appErr, ok := apperr.As(err); ok {
			if appErr.HTTPCode() >= http.StatusInternalServerError {
				log.Error("application error", zap.Error(err), zap.String("path", c.Request().URL.Path))
			}
			_ = failure(c, appErr.HTTPCode(), appErr.Code(), appErr.Message(), appErr.Details())
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message := http.StatusText(httpErr.Code)
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			}
			_ = failure(c, httpErr.Code, "HTTP_ERROR", message, nil)
			return
		}

		log.Error("unhandled error",
			zap.Error(err),
			zap.String("path", c.Request().URL.Path),
			zap.String("method", c.Request().Method),
		)
		_ = failure(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error, please try again later", nil)
	}
}

// lookupErr turns the not-found sentinels of direct repository reads into
// application errors.  Other failures are wrapped with msg.
func lookupErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.ErrUserNotFound
	case errors.Is(err, repository.ErrStoreNotFound):
		return apperr.ErrStoreNotFound
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return errors.Wrap(err, msg)
}
