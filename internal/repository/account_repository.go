package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/novadent/clinic-core/internal/auth"
	"github.com/novadent/clinic-core/internal/utils"
)

// AccountRepo persists accounts in the `accounts` table. It implements
// auth.AccountDirectory plus the mutations needed by user management.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

var _ auth.AccountDirectory = (*AccountRepo)(nil)

const accountColumns = "id, username, password_hash, role, is_active, failed_login_attempts, lock_until, created_at, updated_at"

func scanAccount(row *sql.Row) (*auth.Account, error) {
	var (
		a         auth.Account
		role      string
		lockUntil sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &a.IsActive,
		&a.FailedLoginAttempts, &lockUntil, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role = auth.Role(role)
	if lockUntil.Valid {
		t := lockUntil.Time
		a.LockUntil = &t
	}
	return &a, nil
}

// FindByUsername fetches an account by normalized username.
func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username=? LIMIT 1", username)
	return scanAccount(row)
}

// FindByID fetches an account by id.
func (r *AccountRepo) FindByID(ctx context.Context, id uint64) (*auth.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
	return scanAccount(row)
}

// UpdateLoginState writes the lockout fields only, leaving everything else
// untouched. lockUntil=nil clears the lock column.
func (r *AccountRepo) UpdateLoginState(ctx context.Context, id uint64, failedAttempts int, lockUntil *time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET failed_login_attempts=?, lock_until=? WHERE id=?",
		failedAttempts, lockUntil, id)
	return err
}

// Create inserts an account and returns its id.
func (r *AccountRepo) Create(ctx context.Context, username, password string, role auth.Role, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (username, password_hash, role, is_active) VALUES (?,?,?,1)",
		username, hash, string(role))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByRoles returns accounts whose role is in the given set, ordered by
// username. An empty set returns no rows.
func (r *AccountRepo) ListByRoles(ctx context.Context, roles []auth.Role) ([]auth.Account, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roles)), ",")
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = string(role)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE role IN ("+placeholders+") ORDER BY username", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Account
	for rows.Next() {
		var (
			a         auth.Account
			role      string
			lockUntil sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &a.IsActive,
			&a.FailedLoginAttempts, &lockUntil, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Role = auth.Role(role)
		if lockUntil.Valid {
			t := lockUntil.Time
			a.LockUntil = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateRole changes an account's role.
func (r *AccountRepo) UpdateRole(ctx context.Context, id uint64, role auth.Role) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET role=? WHERE id=?", string(role), id)
	return err
}

// SetActive activates or deactivates an account. Idempotent.
func (r *AccountRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET is_active=? WHERE id=?", active, id)
	return err
}

// ResetPassword replaces the stored digest. Also clears any lockout state so
// an admin reset immediately unlocks the account.
func (r *AccountRepo) ResetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE accounts SET password_hash=?, failed_login_attempts=0, lock_until=NULL WHERE id=?",
		hash, id)
	return err
}

// Delete removes the account row.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM accounts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}
