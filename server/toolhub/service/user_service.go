package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"toolhub/server/toolhub/domain"
	"toolhub/server/toolhub/repository"
)

type userStore interface {
	Create(ctx context.Context, user repository.User) (string, error)
	GetByUsername(ctx context.Context, username string) (repository.User, error)
}

type tokenIssuer interface {
	GenerateToken(userID, role string) (string, error)
}

type UserService struct {
	repo   userStore
	tokens tokenIssuer
}

func NewUserService(repo userStore, tokens tokenIssuer) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 40 {
		return "", fmt.Errorf("%w: username must be 3-40 characters", domain.ErrBadRequest)
	}
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", domain.ErrBadRequest)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	id, err := s.repo.Create(ctx, repository.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         string(domain.RoleUser),
		PasswordHash: string(hashed),
	})
	if err != nil {
		return "", err
	}
	return s.tokens.GenerateToken(id, string(domain.RoleUser))
}

func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidLogin
	}
	return s.tokens.GenerateToken(user.ID, user.Role)
}
