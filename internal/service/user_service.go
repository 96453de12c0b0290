package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	// Create provisions the user profile together with its fresh free-plan
	// entitlement record.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	userRepo        repository.UserRepository
	entitlementRepo repository.EntitlementRepository
}

func NewUserService(userRepo repository.UserRepository, entitlementRepo repository.EntitlementRepository) UserService {
	return &userService{userRepo: userRepo, entitlementRepo: entitlementRepo}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.entitlementRepo.Create(ctx, u.UserID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}
