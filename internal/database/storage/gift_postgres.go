package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const giftColumns = `id, owner_id, title, description, url, image_url, image_path, price_cents, notes, created_at, updated_at`

// GiftStorage реализует ports.GiftStorage поверх sqlx
type GiftStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewGiftStorage(db *sqlx.DB, logger *slog.Logger) *GiftStorage {
	return &GiftStorage{db: db, logger: logger}
}

// CreateGift сохраняет новый подарок
func (s *GiftStorage) CreateGift(ctx context.Context, gift *domain.Gift) error {
	start := time.Now()

	if gift.ID == uuid.Nil {
		gift.ID = uuid.New()
	}
	now := time.Now().UTC()
	if gift.CreatedAt.IsZero() {
		gift.CreatedAt = now
	}
	gift.UpdatedAt = gift.CreatedAt

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO gifts (`+giftColumns+`)
		VALUES (:id, :owner_id, :title, :description, :url, :image_url, :image_path, :price_cents, :notes, :created_at, :updated_at)
	`, gift)
	if err != nil {
		s.logger.Error("failed to save gift", "owner_id", gift.OwnerID, "error", err)
		return fmt.Errorf("ошибка при сохранении подарка: %w", err)
	}

	s.logger.Info("gift saved successfully",
		"gift_id", gift.ID,
		"owner_id", gift.OwnerID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// GetGiftByID получает подарок по ID
func (s *GiftStorage) GetGiftByID(ctx context.Context, id uuid.UUID) (*domain.Gift, error) {
	return getGift(ctx, s.db, id)
}

// UpdateGift обновляет изменяемые поля. owner_id в запрос не входит намеренно.
func (s *GiftStorage) UpdateGift(ctx context.Context, gift *domain.Gift) error {
	start := time.Now()

	gift.UpdatedAt = time.Now().UTC()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE gifts
		SET title = :title,
		    description = :description,
		    url = :url,
		    image_url = :image_url,
		    price_cents = :price_cents,
		    notes = :notes,
		    updated_at = :updated_at
		WHERE id = :id
	`, gift)
	if err != nil {
		s.logger.Error("failed to update gift", "gift_id", gift.ID, "error", err)
		return fmt.Errorf("ошибка при обновлении подарка: %w", err)
	}
	if err := expectAffected(res, gift.ID); err != nil {
		return err
	}

	s.logger.Info("gift updated",
		"gift_id", gift.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// DeleteGift удаляет подарок; покупка удаляется каскадом (ON DELETE CASCADE).
func (s *GiftStorage) DeleteGift(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM gifts WHERE id = $1`, id)
	if err != nil {
		s.logger.Error("failed to delete gift", "gift_id", id, "error", err)
		return fmt.Errorf("ошибка при удалении подарка: %w", err)
	}
	if err := expectAffected(res, id); err != nil {
		return err
	}
	s.logger.Info("gift deleted", "gift_id", id)
	return nil
}

// ListGiftsByOwner получает подарки пользователя.
func (s *GiftStorage) ListGiftsByOwner(ctx context.Context, ownerID uuid.UUID, newestFirst bool) ([]domain.Gift, error) {
	start := time.Now()

	q := `SELECT ` + giftColumns + ` FROM gifts WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`
	if newestFirst {
		q = `SELECT ` + giftColumns + ` FROM gifts WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	}

	gifts := []domain.Gift{}
	if err := s.db.SelectContext(ctx, &gifts, q, ownerID); err != nil {
		s.logger.Error("failed to list gifts", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("ошибка при получении списка подарков: %w", err)
	}

	s.logger.Info("listed gifts successfully",
		"owner_id", ownerID,
		"count", len(gifts),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return gifts, nil
}

// SetGiftImagePath записывает ключ загруженного изображения.
func (s *GiftStorage) SetGiftImagePath(ctx context.Context, id uuid.UUID, path string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE gifts SET image_path = $2, updated_at = $3 WHERE id = $1`, id, path, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to set gift image path", "gift_id", id, "error", err)
		return fmt.Errorf("set gift image path: %w", err)
	}
	return expectAffected(res, id)
}

// SetInferredImageURL не перезаписывает image_url, заданный пользователем.
func (s *GiftStorage) SetInferredImageURL(ctx context.Context, id uuid.UUID, imageURL string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE gifts SET image_url = $2, updated_at = $3
		WHERE id = $1 AND (image_url IS NULL OR image_url = '')
	`, id, imageURL, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to set inferred image url", "gift_id", id, "error", err)
		return false, fmt.Errorf("set inferred image url: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// getGift используется и вне транзакции, и внутри нее.
func getGift(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*domain.Gift, error) {
	var gift domain.Gift
	err := sqlx.GetContext(ctx, q, &gift, `SELECT `+giftColumns+` FROM gifts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("gift %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении подарка по ID: %w", err)
	}
	return &gift, nil
}

func expectAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("gift %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
