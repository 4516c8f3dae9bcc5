package rilis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login, whether the
// username is unknown or the password is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// GetUserByUsername returns the account with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT id, username, password_hash FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// CreateUser stores a new account with a bcrypt hash of password.
func (s *Store) CreateUser(ctx context.Context, username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	u := User{Username: username, PasswordHash: string(hash)}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (:username, :password_hash)`, &u)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return User{}, fmt.Errorf("failed to read user id: %w", err)
	}
	return u, nil
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// EnsureDefaultUser provisions the default account when no account exists
// yet. It reports whether an account was created.
func (s *Store) EnsureDefaultUser(ctx context.Context, username, password string) (bool, error) {
	n, err := s.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate checks a username/password pair against the stored hash.
// Every failure is reported as ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
