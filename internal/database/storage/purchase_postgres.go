package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const purchaseColumns = `id, gift_id, buyer_id, purchased_at`

// PurchaseStorage — хранилище покупок. Все записи идут через WithinTx.
type PurchaseStorage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPurchaseStorage(db *sqlx.DB, logger *slog.Logger) *PurchaseStorage {
	return &PurchaseStorage{db: db, logger: logger}
}

// WithinTx открывает транзакцию READ COMMITTED, выполняет fn и фиксирует ее.
// Если fn вернула ошибку или контекст отменен, транзакция откатывается.
func (s *PurchaseStorage) WithinTx(ctx context.Context, fn func(tx ports.PurchaseTx) error) error {
	start := time.Now()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		s.logger.Error("failed to begin purchase transaction", "error", err)
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&purchaseTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("failed to roll back purchase transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// коммит тоже может упасть на уникальном ограничении
		if uniqueViolation(err, constraintPurchaseGift) {
			return fmt.Errorf("commit purchase: %w", domain.ErrConflictRace)
		}
		s.logger.Error("failed to commit purchase transaction", "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Debug("purchase transaction committed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// PurchasesForGifts возвращает покупки для набора подарков одним запросом.
func (s *PurchaseStorage) PurchasesForGifts(ctx context.Context, giftIDs []uuid.UUID) (map[uuid.UUID]domain.Purchase, error) {
	result := make(map[uuid.UUID]domain.Purchase, len(giftIDs))
	if len(giftIDs) == 0 {
		return result, nil
	}

	ids := make(pq.StringArray, 0, len(giftIDs))
	for _, id := range giftIDs {
		ids = append(ids, id.String())
	}

	var purchases []domain.Purchase
	err := s.db.SelectContext(ctx, &purchases,
		`SELECT `+purchaseColumns+` FROM purchases WHERE gift_id = ANY($1::uuid[])`, ids)
	if err != nil {
		s.logger.Error("failed to load purchases for gifts", "count", len(giftIDs), "error", err)
		return nil, fmt.Errorf("select purchases for gifts: %w", err)
	}
	for _, p := range purchases {
		result[p.GiftID] = p
	}
	return result, nil
}

// ListPurchasesByBuyer — покупки пользователя, новые сверху.
func (s *PurchaseStorage) ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseListing, error) {
	start := time.Now()

	listings := []domain.PurchaseListing{}
	err := s.db.SelectContext(ctx, &listings, `
		SELECT p.id, p.gift_id, p.buyer_id, p.purchased_at,
		       g.title AS gift_title, u.name AS owner_name, u.email AS owner_email
		FROM purchases p
		JOIN gifts g ON g.id = p.gift_id
		JOIN users u ON u.id = g.owner_id
		WHERE p.buyer_id = $1
		ORDER BY p.purchased_at DESC
	`, buyerID)
	if err != nil {
		s.logger.Error("failed to list purchases", "buyer_id", buyerID, "error", err)
		return nil, fmt.Errorf("list purchases by buyer: %w", err)
	}

	s.logger.Info("listed purchases",
		"buyer_id", buyerID,
		"count", len(listings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return listings, nil
}

type purchaseTx struct {
	tx *sqlx.Tx
}

func (t *purchaseTx) GetGift(ctx context.Context, id uuid.UUID) (*domain.Gift, error) {
	return getGift(ctx, t.tx, id)
}

func (t *purchaseTx) GetPurchaseByGift(ctx context.Context, giftID uuid.UUID) (*domain.Purchase, error) {
	var p domain.Purchase
	err := t.tx.GetContext(ctx, &p, `SELECT `+purchaseColumns+` FROM purchases WHERE gift_id = $1`, giftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select purchase by gift: %w", err)
	}
	return &p, nil
}

// InsertPurchase не проверяет наличие покупки заранее: гонку разрешает ограничение uq_purchases_gift.
// Если подарок уже удален, возвращается ошибка, оборачивающая domain.ErrNotFound.
func (t *purchaseTx) InsertPurchase(ctx context.Context, p *domain.Purchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PurchasedAt.IsZero() {
		p.PurchasedAt = time.Now().UTC()
	}
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES (:id, :gift_id, :buyer_id, :purchased_at)
	`, p)
	if err != nil {
		if uniqueViolation(err, constraintPurchaseGift) {
			return fmt.Errorf("insert purchase for gift %s: %w", p.GiftID, domain.ErrConflictRace)
		}
		// подарок удалили между чтением и вставкой
		if foreignKeyViolation(err, constraintPurchaseGiftFK) {
			return fmt.Errorf("insert purchase for gift %s: %w", p.GiftID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (t *purchaseTx) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("purchase %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
