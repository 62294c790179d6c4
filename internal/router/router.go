package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/handler"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/model"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness at /healthz and database readiness at /readyz.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the account routes.  Register and login are
// public; login goes through limit.  Profile and password change accept
// any valid role, and /api/users/:id admits the account itself or an
// admin.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate middleware.IdentityResolver, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login, limit)

	authed := middleware.Authenticate(gate)
	anyRole := middleware.Require(auth.Public())
	g.GET("/profile", a.Profile, authed, anyRole)
	g.POST("/change-password", a.ChangePassword, authed, anyRole)

	e.GET("/api/users/:id", a.GetUser, authed, middleware.Require(auth.SelfOrRole(model.RoleAdmin, "id")))
}
