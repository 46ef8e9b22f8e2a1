package router

import (
	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/handler"
	"github.com/abyssal/species-observation/internal/middleware"
)

// RegisterAuth wires the identity service: public registration and
// login, the authenticated identity echo, and the admin/trusted user
// management surface.
//
// PATCH on role and reputation is open to EXPERT as well as ADMIN
// because the observation service relays reputation updates with the
// moderating expert's own token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserAdminHandler, jwtSecret string) {
	e.GET("/health", handler.Health("auth-service"))

	e.POST("/auth/register", a.Register)
	e.POST("/auth/login", a.Login)

	api := e.Group("/api", middleware.JWTAuth(jwtSecret))
	api.GET("/me", a.Me)

	admin := api.Group("/admin", middleware.RequireRole("ADMIN"))
	admin.GET("/users", u.List)

	trusted := api.Group("/users", middleware.RequireRole("EXPERT", "ADMIN"))
	trusted.PATCH("/:id/role", u.UpdateRole)
	trusted.PATCH("/:id/reputation", u.UpdateReputation)
}
