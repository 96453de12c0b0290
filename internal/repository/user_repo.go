package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO user_profiles (user_id, name, email, avatar_url)
              VALUES ($1, $2, $3, $4) RETURNING user_id, name, email, avatar_url, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.UserID, u.Name, u.Email, u.AvatarURL).
		Scan(&u.UserID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w: %w", u.UserID, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT user_id, email, name, avatar_url, created_at, updated_at FROM user_profiles WHERE user_id = $1`
	var u model.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.UserID, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching user %s: %w: %w", id, ErrStoreUnavailable, err)
	}
	return &u, nil
}
