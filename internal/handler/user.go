package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novadent/clinic-core/internal/auth"
	"github.com/novadent/clinic-core/internal/config"
	"github.com/novadent/clinic-core/internal/middleware"
	"github.com/novadent/clinic-core/internal/queue"
	"github.com/novadent/clinic-core/internal/repository"
	"github.com/novadent/clinic-core/internal/service"
)

// UserHandler implements privileged account administration. Route-level
// authorisation only gets a request this far; every operation here is
// additionally gated by the resource permission rules (manageable roles,
// staff carve-out) against the specific target account.
type UserHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	Log      *zap.Logger
}

func NewUserHandler(cfg config.Config, accounts *repository.AccountRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{Cfg: cfg, Accounts: accounts, Log: log}
}

type createUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
type updateRoleReq struct {
	Role string `json:"role"`
}
type resetPasswordReq struct {
	Password string `json:"password"`
}

// List returns the accounts the requester is allowed to administer. Roles
// outside the requester's manageable set are filtered out entirely.
func (h *UserHandler) List(c echo.Context) error {
	role, _ := c.Get(middleware.RoleKey).(auth.Role)
	visible := auth.ManageableRoles(role)
	if len(visible) == 0 {
		return c.JSON(http.StatusOK, []accountPart{})
	}

	ctx, cancel := h.opCtx(c)
	defer cancel()

	accounts, err := h.Accounts.ListByRoles(ctx, visible)
	if err != nil {
		h.Log.Error("listing accounts failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]accountPart, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountPart(&accounts[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Create adds an account with the requested role.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}
	target := auth.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !auth.IsValidRole(target) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	requester, _ := c.Get(middleware.RoleKey).(auth.Role)
	if !auth.CheckPermission(requester, target) {
		return h.forbidden(c, requester, target, "create")
	}

	ctx, cancel := h.opCtx(c)
	defer cancel()

	id, err := h.Accounts.Create(ctx, req.Username, req.Password, target, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		h.Log.Error("creating account failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, accountPart{ID: id, Username: req.Username, Role: target, IsActive: true})
}

// UpdateRole changes a target account's role. The requester must be allowed
// to administer both the current and the new role.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	newRole := auth.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !auth.IsValidRole(newRole) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := h.opCtx(c)
	defer cancel()

	target, errResp := h.loadTarget(c, ctx)
	if target == nil {
		return errResp
	}
	requester, _ := c.Get(middleware.RoleKey).(auth.Role)
	if !auth.CheckPermission(requester, target.Role) || !auth.CheckPermission(requester, newRole) {
		return h.forbidden(c, requester, target.Role, "update-role")
	}

	if err := h.Accounts.UpdateRole(ctx, target.ID, newRole); err != nil {
		h.Log.Error("updating role failed", zap.Uint64("account_id", target.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	target.Role = newRole
	return c.JSON(http.StatusOK, toAccountPart(target))
}

// SetActive activates or deactivates a target account. Self-deactivation is
// always rejected, whatever the requester's permission level.
func (h *UserHandler) SetActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := h.opCtx(c)
		defer cancel()

		target, errResp := h.loadTarget(c, ctx)
		if target == nil {
			return errResp
		}
		requesterID, _ := c.Get(middleware.AccountIDKey).(uint64)
		if !active && requesterID == target.ID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot deactivate own account"})
		}
		requester, _ := c.Get(middleware.RoleKey).(auth.Role)
		if !auth.CheckPermission(requester, target.Role) {
			return h.forbidden(c, requester, target.Role, "set-active")
		}

		if err := h.Accounts.SetActive(ctx, target.ID, active); err != nil {
			h.Log.Error("updating account status failed", zap.Uint64("account_id", target.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		target.IsActive = active
		return c.JSON(http.StatusOK, toAccountPart(target))
	}
}

// Delete removes a target account. Self-deletion is always rejected.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := h.opCtx(c)
	defer cancel()

	target, errResp := h.loadTarget(c, ctx)
	if target == nil {
		return errResp
	}
	requesterID, _ := c.Get(middleware.AccountIDKey).(uint64)
	if requesterID == target.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot delete own account"})
	}
	requester, _ := c.Get(middleware.RoleKey).(auth.Role)
	if !auth.CheckPermission(requester, target.Role) {
		return h.forbidden(c, requester, target.Role, "delete")
	}

	if err := h.Accounts.Delete(ctx, target.ID); err != nil {
		h.Log.Error("deleting account failed", zap.Uint64("account_id", target.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword is the admin-triggered reset: it replaces the digest and
// clears any lockout, then records a security event.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	ctx, cancel := h.opCtx(c)
	defer cancel()

	target, errResp := h.loadTarget(c, ctx)
	if target == nil {
		return errResp
	}
	requester, _ := c.Get(middleware.RoleKey).(auth.Role)
	if !auth.CheckPermission(requester, target.Role) {
		return h.forbidden(c, requester, target.Role, "reset-password")
	}

	if err := h.Accounts.ResetPassword(ctx, target.ID, req.Password, h.Cfg.BcryptCost); err != nil {
		h.Log.Error("resetting password failed", zap.Uint64("account_id", target.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	requesterID, _ := c.Get(middleware.AccountIDKey).(uint64)
	_ = service.PublishSecurityEvent(ctx, queue.SecurityEvent{
		Type:       queue.EventPasswordReset,
		AccountID:  target.ID,
		Username:   target.Username,
		ActorID:    requesterID,
		OccurredAt: time.Now().UTC(),
	})
	return c.NoContent(http.StatusNoContent)
}

// loadTarget resolves the :id path parameter. On failure it writes the
// response and returns nil.
func (h *UserHandler) loadTarget(c echo.Context, ctx context.Context) (*auth.Account, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid account id"})
	}
	target, err := h.Accounts.FindByID(ctx, id)
	if errors.Is(err, auth.ErrAccountNotFound) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}
	if err != nil {
		h.Log.Error("loading account failed", zap.Uint64("account_id", id), zap.Error(err))
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return target, nil
}

func (h *UserHandler) forbidden(c echo.Context, requester, target auth.Role, op string) error {
	accountID, _ := c.Get(middleware.AccountIDKey).(uint64)
	h.Log.Info("user management denied",
		zap.Uint64("account_id", accountID),
		zap.String("role", string(requester)),
		zap.String("target_role", string(target)),
		zap.String("operation", op),
	)
	return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
}

func (h *UserHandler) opCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
