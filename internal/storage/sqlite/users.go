package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tripledger/internal/core"
)

const userColumns = `id, email, name, password_hash, COALESCE(avatar, ''), created_at`

func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now()

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, avatar, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, nullString(u.Avatar), formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *Repository) getUser(ctx context.Context, query string, arg string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.q.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Avatar, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, password_hash = ?, avatar = ? WHERE id = ?`,
		u.Email, u.Name, u.PasswordHash, nullString(u.Avatar), u.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", u.Email, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectAffected(res)
}
