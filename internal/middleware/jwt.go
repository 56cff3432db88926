// Package middleware provides the HTTP request gates: bearer-token
// authentication, role-based route authorisation and login rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/novadent/clinic-core/internal/auth"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	ClaimsKey    = "claims"     // *auth.AccessClaims
	AccountIDKey = "account_id" // uint64
	RoleKey      = "role"       // auth.Role
)

// JWTAuth validates the Authorization bearer token through the session
// manager (signature, expiry, blacklist) and stores the claims in the
// request context. Wrap every protected route with it.
func JWTAuth(sessions *auth.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := sessions.AuthenticateRequest(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			accountID, err := claims.AccountID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(ClaimsKey, claims)
			c.Set(AccountIDKey, accountID)
			c.Set(RoleKey, claims.Role)
			return next(c)
		}
	}
}

// BearerToken extracts the raw token from the Authorization header, or ""
// when the header is missing or not a bearer scheme.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// RequesterClaims returns the authenticated claims stored by JWTAuth, or nil
// when the route is not protected.
func RequesterClaims(c echo.Context) *auth.AccessClaims {
	claims, _ := c.Get(ClaimsKey).(*auth.AccessClaims)
	return claims
}
