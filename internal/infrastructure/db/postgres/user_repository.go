package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

// UserRepository is the Postgres credential store.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	created := *user
	err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query :=
		`SELECT id, username, password_hash, created_at FROM users
		 WHERE username = $1`

	var u domain.User
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return &u, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE username = $2`,
		passwordHash, username)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrUserNotFound)
}

// affectedOrNotFound maps a zero-row write to notFound.
func affectedOrNotFound(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
