package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novadent/clinic-core/internal/auth"
	"github.com/novadent/clinic-core/internal/middleware"
	"github.com/novadent/clinic-core/internal/queue"
	"github.com/novadent/clinic-core/internal/service"
)

// AuthHandler exposes the session lifecycle over HTTP: login, refresh,
// logout, logout-all and the identity echo endpoint.
type AuthHandler struct {
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

func NewAuthHandler(sessions *auth.SessionManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Sessions: sessions, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type accountPart struct {
	ID       uint64    `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
	IsActive bool      `json:"is_active"`
}
type authResp struct {
	Account accountPart `json:"account"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func toAccountPart(a *auth.Account) accountPart {
	return accountPart{ID: a.ID, Username: a.Username, Role: a.Role, IsActive: a.IsActive}
}

func toAuthResp(a *auth.Account, pair *auth.TokenPair) authResp {
	return authResp{
		Account: toAccountPart(a),
		Access:  tokenPart{Token: pair.AccessToken, Expires: pair.AccessExpiresAt},
		Refresh: tokenPart{Token: pair.RefreshToken, Expires: pair.RefreshExpiresAt},
	}
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, pair, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(acc, pair))
}

// Refresh rotates a refresh token and returns a new pair. The presented
// token is single-use: a second call with it fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, pair, err := h.Sessions.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(acc, pair))
}

// Logout blacklists the presented access token. Always answers 204: logout
// is best-effort and idempotent from the caller's perspective.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := middleware.BearerToken(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization bearer token"})
	}
	h.Sessions.Logout(c.Request().Context(), raw)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll blacklists the current access token and revokes every refresh
// session the account holds. Protected route: identity comes from JWTAuth.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	accountID, ok := c.Get(middleware.AccountIDKey).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.Sessions.LogoutAll(ctx, accountID, middleware.BearerToken(c))
	if err != nil {
		h.Log.Error("logout-all failed", zap.Uint64("account_id", accountID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	// Best-effort audit trail; failures are logged by the publisher.
	_ = service.PublishSecurityEvent(ctx, queue.SecurityEvent{
		Type:       queue.EventSessionsRevoked,
		AccountID:  accountID,
		Detail:     "logout-all",
		Count:      count,
		OccurredAt: time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, echo.Map{"revoked_sessions": count})
}

// Me returns the authenticated identity, mostly for client bootstrapping.
func (h *AuthHandler) Me(c echo.Context) error {
	claims := middleware.RequesterClaims(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	accountID, _ := c.Get(middleware.AccountIDKey).(uint64)
	return c.JSON(http.StatusOK, echo.Map{
		"account_id": accountID,
		"username":   claims.Username,
		"role":       claims.Role,
	})
}

// sessionError maps core errors onto HTTP responses. External callers never
// learn which credential check failed.
func (h *AuthHandler) sessionError(c echo.Context, err error) error {
	var locked *auth.AccountLockedError
	switch {
	case errors.Is(err, auth.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	case errors.As(err, &locked):
		return c.JSON(http.StatusLocked, echo.Map{
			"error":               "account temporarily locked",
			"retry_after_minutes": locked.RemainingMinutes,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	default:
		h.Log.Error("session operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
