package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/handler"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/model"
)

// RegisterOwner registers the store owner views under /api/store-owner.
func RegisterOwner(e *echo.Echo, h *handler.OwnerHandler, gate middleware.IdentityResolver) {
	g := e.Group(
		"/api/store-owner",
		middleware.Authenticate(gate),
		middleware.Require(auth.RoleIn(model.RoleStoreOwner)),
	)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/store", h.Store)
	g.GET("/ratings", h.ListRatings)
}
