package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novadent/clinic-core/internal/auth"
)

// RequireRole enforces route-level authorisation: the requester must either
// hold one of the listed roles or outrank the lowest of them (see
// auth.Authorize). Denials are logged as structured records; the response
// body stays generic so the hierarchy is not leaked to callers.
func RequireRole(log *zap.Logger, allowed ...auth.Role) echo.MiddlewareFunc {
	return requireFunc(log, allowed, func(r auth.Role) bool {
		return auth.Authorize(r, allowed)
	})
}

// RequireLevel admits any role at or above the given hierarchy level,
// bypassing the allow-list semantics of RequireRole.
func RequireLevel(log *zap.Logger, minLevel int) echo.MiddlewareFunc {
	return requireFunc(log, nil, func(r auth.Role) bool {
		lvl := auth.Level(r)
		return lvl > 0 && lvl >= minLevel
	})
}

func requireFunc(log *zap.Logger, allowed []auth.Role, pass func(auth.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(RoleKey).(auth.Role)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if !pass(role) {
				accountID, _ := c.Get(AccountIDKey).(uint64)
				log.Info("route access denied",
					zap.Uint64("account_id", accountID),
					zap.String("role", string(role)),
					zap.Any("required_roles", allowed),
					zap.String("resource", c.Path()),
					zap.String("method", c.Request().Method),
				)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}
			return next(c)
		}
	}
}
