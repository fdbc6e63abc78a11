package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

type userUseCase struct {
	users  ports.UserStorage
	hasher ports.PasswordHasher
	now    ports.Clock
	logger *slog.Logger
}

func NewUserUseCase(users ports.UserStorage, hasher ports.PasswordHasher, now ports.Clock, logger *slog.Logger) UserUseCase {
	if now == nil {
		now = time.Now
	}
	return &userUseCase{users: users, hasher: hasher, now: now, logger: logger}
}

func (uc *userUseCase) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("usecase: hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        domain.NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("usecase: register %s: %w", user.Email, err)
	}

	uc.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (uc *userUseCase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("usecase: authenticate: %w", err)
	}
	if err := uc.hasher.Compare(user.PasswordHash, password); err != nil {
		uc.logger.Warn("invalid password", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (uc *userUseCase) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := uc.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usecase: get user %s: %w", id, err)
	}
	return user, nil
}

func (uc *userUseCase) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := uc.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("usecase: find user %q: %w", username, err)
	}
	return user, nil
}

func (uc *userUseCase) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	users, err := uc.users.SearchUsers(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("usecase: search users: %w", err)
	}
	return users, nil
}
