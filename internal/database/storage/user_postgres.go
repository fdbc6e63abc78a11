package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password_hash, created_at`

// UserStorage реализует интерфейс ports.UserStorage поверх sqlx
type UserStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewUserStorage создает новый экземпляр UserStorage
func NewUserStorage(db *sqlx.DB, logger *slog.Logger) *UserStorage {
	return &UserStorage{db: db, logger: logger}
}

// CreateUser сохраняет пользователя. Уникальность email проверяет индекс uq_users_email_lower.
func (s *UserStorage) CreateUser(ctx context.Context, user *domain.User) error {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (:id, :email, :name, :password_hash, :created_at)
	`, user)
	if err != nil {
		if uniqueViolation(err, constraintUserEmail) {
			s.logger.Warn("email already registered", "email", user.Email)
			return fmt.Errorf("insert user %s: %w", user.Email, domain.ErrEmailTaken)
		}
		s.logger.Error("failed to insert user", "email", user.Email, "error", err)
		return fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user created",
		"user_id", user.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetUserByID получает пользователя по ID.
func (s *UserStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		s.logger.Error("failed to get user by id", "user_id", id, "error", err)
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &user, nil
}

// GetUserByEmail ищет пользователя без учета регистра.
func (s *UserStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s: %w", email, domain.ErrNotFound)
		}
		s.logger.Error("failed to get user by email", "error", err)
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return &user, nil
}

// GetUserByUsername возвращает самого раннего пользователя с email вида "username@...".
func (s *UserStorage) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	start := time.Now()

	var user domain.User
	err := s.db.GetContext(ctx, &user, `
		SELECT `+userColumns+` FROM users
		WHERE email ILIKE $1
		ORDER BY created_at ASC
		LIMIT 1
	`, escapeLike(username)+"@%")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("user not found by username", "username", username)
			return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		s.logger.Error("failed to get user by username", "username", username, "error", err)
		return nil, fmt.Errorf("select user by username: %w", err)
	}

	s.logger.Debug("user retrieved by username",
		"username", username,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &user, nil
}

// SearchUsers ищет по имени или email; пустой запрос возвращает всех пользователей.
func (s *UserStorage) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	start := time.Now()

	var users []domain.User
	var err error
	query = strings.TrimSpace(query)
	if query == "" {
		err = s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	} else {
		err = s.db.SelectContext(ctx, &users, `
			SELECT `+userColumns+` FROM users
			WHERE name ILIKE $1 OR email ILIKE $1
			ORDER BY created_at ASC
		`, "%"+escapeLike(query)+"%")
	}
	if err != nil {
		s.logger.Error("failed to search users", "query", query, "error", err)
		return nil, fmt.Errorf("search users: %w", err)
	}

	s.logger.Info("users search completed",
		"query", query,
		"found", len(users),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return users, nil
}
