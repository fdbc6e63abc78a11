package usecase

import (
	"context"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

// UserUseCase — регистрация, вход и поиск пользователей.
type UserUseCase interface {
	// Register возвращает domain.ErrEmailTaken, если адрес уже занят.
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	// Authenticate возвращает domain.ErrInvalidCredentials и для неизвестного email, и для неверного пароля.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
}
