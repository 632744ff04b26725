package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/university-events/internal/model"
)

// UserRepo persists accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with an already hashed password and returns its ID.
// The email is stored exactly as given; callers trim it beforehand.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, passwordHash, string(role))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user id: %w", err)
	}
	return uint64(id), nil
}

// EmailExists reports whether an account with this exact email exists.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup email: %w", err)
	}
	return true, nil
}

// GetByEmail fetches a user, including the password hash, by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT id,name,email,password_hash,role,created_at FROM users WHERE email=? LIMIT 1", email)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	if !u.Role.Valid() {
		return model.User{}, fmt.Errorf("get user %d: unknown role %q", u.ID, role)
	}
	return u, nil
}
