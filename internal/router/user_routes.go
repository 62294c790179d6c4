package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/handler"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/model"
)

// RegisterUser registers store browsing and rating under /api/user.
// Browsing is open to every valid role and served through cache;
// submitting a rating needs the user role and passes limit.
func RegisterUser(e *echo.Echo, h *handler.BrowseHandler, gate middleware.IdentityResolver, cache, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/api/user",
		middleware.Authenticate(gate),
		middleware.Require(auth.Public()),
	)
	g.GET("/stores", h.ListStores, cache)
	g.GET("/stores/:id", h.GetStore, cache)
	g.POST("/ratings", h.SubmitRating, middleware.Require(auth.RoleIn(model.RoleUser)), limit)
}
