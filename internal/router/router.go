// Package router registers the HTTP routes and their middleware chains.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novadent/clinic-core/internal/auth"
	"github.com/novadent/clinic-core/internal/config"
	"github.com/novadent/clinic-core/internal/handler"
	"github.com/novadent/clinic-core/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session lifecycle endpoints. The credential
// endpoints (login, refresh) sit behind the Redis rate limiter; logout-all
// and /me require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, sessions *auth.SessionManager,
	rdb *redis.Client, rlCfg config.RateLimitConfig, log *zap.Logger) {

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limited)
	g.POST("/refresh", a.Refresh, limited)
	g.POST("/logout", a.Logout)

	authed := e.Group("/v1")
	authed.Use(middleware.JWTAuth(sessions))
	authed.POST("/auth/logout-all", a.LogoutAll)
	authed.GET("/me", a.Me)
}

// RegisterUsers registers the account administration endpoints. The route
// gate lists staff; by level inheritance that admits staff, dentists,
// managers and admins while keeping patients out. The fine-grained target
// checks live inside the handlers.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, sessions *auth.SessionManager, log *zap.Logger) {
	g := e.Group("/v1/users")
	g.Use(middleware.JWTAuth(sessions))
	g.Use(middleware.RequireRole(log, auth.RoleStaff))

	g.GET("", u.List)
	g.POST("", u.Create)
	g.PATCH("/:id/role", u.UpdateRole)
	g.POST("/:id/activate", u.SetActive(true))
	g.POST("/:id/deactivate", u.SetActive(false))
	g.POST("/:id/reset-password", u.ResetPassword)
	g.DELETE("/:id", u.Delete)
}
