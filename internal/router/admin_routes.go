package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/handler"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/model"
)

// RegisterAdmin registers the management routes under /api/admin.  Every
// route requires the admin role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, gate middleware.IdentityResolver) {
	g := e.Group(
		"/api/admin",
		middleware.Authenticate(gate),
		middleware.Require(auth.RoleIn(model.RoleAdmin)),
	)
	g.GET("/dashboard", h.Dashboard)

	g.GET("/users", h.ListUsers)
	g.GET("/users/:id", h.GetUser)
	g.POST("/users", h.CreateUser)
	g.PUT("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)

	g.GET("/stores", h.ListStores)
	g.GET("/stores/:id", h.GetStore)
	g.POST("/stores", h.CreateStore)
	g.PUT("/stores/:id", h.UpdateStore)
	g.DELETE("/stores/:id", h.DeleteStore)
}
