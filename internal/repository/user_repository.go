package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/smartlearning/auth-service/internal/model"
	"github.com/smartlearning/auth-service/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a pending user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName string, role model.Role, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role, status, email_verified) VALUES (?,?,?,?,?,0)",
		email, hash, fullName, role.String(), model.StatusPending)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,full_name,role,status,email_verified,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// Activate flips a user to active and marks the email verified. Called
// exactly when a verify_email OTP is redeemed.
func (r *UserRepo) Activate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, email_verified=1 WHERE id=?",
		model.StatusActive, id)
	return err
}

// DeletePendingByEmail removes a stale, never-verified registration so the
// email can be registered again. Returns true when a row was deleted. OTPs
// and trusted devices cascade via foreign keys.
func (r *UserRepo) DeletePendingByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE email=? AND status=? AND email_verified=0",
		email, model.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role,
		&u.Status, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	// Legacy rows may carry role synonyms; fold them into the enum here so
	// nothing past the repository sees a non-canonical role.
	if norm, ok := model.NormalizeRole(role); ok {
		u.Role = norm
	} else {
		u.Role = model.Role(strings.ToLower(role))
	}
	return u, nil
}
