package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"toolhub/server/toolhub/domain"
)

type User struct {
	ID           string
	Username     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user User) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users(id, username, role, password_hash)
		VALUES($1, $2, $3, $4)
		RETURNING id
	`, user.ID, user.Username, user.Role, user.PasswordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", domain.ErrUsernameTaken
		}
		return "", err
	}
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, role, password_hash, created_at
		FROM users
		WHERE username=$1
	`, username).Scan(&user.ID, &user.Username, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, domain.ErrInvalidLogin
		}
		return User{}, err
	}
	return user, nil
}
