package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/policy"
	"github.com/google/uuid"
)

// purchaseUseCase implements PurchaseUseCase
type purchaseUseCase struct {
	purchases ports.PurchaseStorage
	recorder  OutcomeRecorder
	now       ports.Clock
	logger    *slog.Logger
}

// NewPurchaseUseCase создает сервис покупок. recorder может быть nil.
func NewPurchaseUseCase(
	purchases ports.PurchaseStorage,
	recorder OutcomeRecorder,
	now ports.Clock,
	logger *slog.Logger,
) PurchaseUseCase {
	if now == nil {
		now = time.Now
	}
	return &purchaseUseCase{
		purchases: purchases,
		recorder:  recorder,
		now:       now,
		logger:    logger,
	}
}

// Claim проверяет условия и вставляет покупку в одной транзакции.
// Проверка существующей покупки лишь выбирает сообщение для пользователя:
// при гонке двух транзакций вторую отклоняет ограничение uq_purchases_gift,
// и ошибка ErrConflictRace превращается в already_purchased_by_other.
// Подарок, удаленный между чтением и вставкой, дает not_found.
func (uc *purchaseUseCase) Claim(ctx context.Context, giftID, buyerID uuid.UUID) (domain.ClaimResult, error) {
	if buyerID == uuid.Nil {
		return domain.ClaimResult{}, fmt.Errorf("claim gift %s without buyer: %w", giftID, domain.ErrForbidden)
	}

	var result domain.ClaimResult
	err := uc.purchases.WithinTx(ctx, func(tx ports.PurchaseTx) error {
		result = domain.ClaimResult{}

		gift, err := tx.GetGift(ctx, giftID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Outcome = domain.ClaimNotFound
				return nil
			}
			return err
		}
		result.Gift = gift

		if policy.AssertOwner(*gift, buyerID) == nil {
			result.Outcome = domain.ClaimSelfPurchase
			return nil
		}

		existing, err := tx.GetPurchaseByGift(ctx, giftID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.BuyerID == buyerID {
				result.Outcome = domain.ClaimAlreadyPurchasedByBuyer
			} else {
				result.Outcome = domain.ClaimAlreadyPurchasedByOther
			}
			return nil
		}

		purchase := &domain.Purchase{
			ID:          uuid.New(),
			GiftID:      giftID,
			BuyerID:     buyerID,
			PurchasedAt: uc.now().UTC(),
		}
		if err := tx.InsertPurchase(ctx, purchase); err != nil {
			return err
		}
		result.Outcome = domain.ClaimOK
		result.Purchase = purchase
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrConflictRace):
		uc.logger.Info("concurrent claim rejected by unique constraint",
			"gift_id", giftID,
			"buyer_id", buyerID,
		)
		result = domain.ClaimResult{Outcome: domain.ClaimAlreadyPurchasedByOther, Gift: result.Gift}
	case errors.Is(err, domain.ErrNotFound):
		// подарок удалили после чтения, вставку отклонил внешний ключ
		uc.logger.Info("gift deleted during claim", "gift_id", giftID, "buyer_id", buyerID)
		result = domain.ClaimResult{Outcome: domain.ClaimNotFound}
	case err != nil:
		uc.logger.Error("claim failed", "gift_id", giftID, "buyer_id", buyerID, "error", err)
		return domain.ClaimResult{}, fmt.Errorf("usecase: claim gift %s: %w", giftID, err)
	}

	uc.record(func(r OutcomeRecorder) { r.RecordClaim(string(result.Outcome)) })
	uc.logger.Info("claim processed",
		"gift_id", giftID,
		"buyer_id", buyerID,
		"outcome", result.Outcome,
	)
	return result, nil
}

// Unclaim удаляет покупку в транзакции, если ее сделал requesterID.
func (uc *purchaseUseCase) Unclaim(ctx context.Context, giftID, requesterID uuid.UUID) (domain.UnclaimResult, error) {
	var result domain.UnclaimResult
	err := uc.purchases.WithinTx(ctx, func(tx ports.PurchaseTx) error {
		result = domain.UnclaimResult{}

		gift, err := tx.GetGift(ctx, giftID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Outcome = domain.UnclaimNotFound
				return nil
			}
			return err
		}
		result.Gift = gift

		existing, err := tx.GetPurchaseByGift(ctx, giftID)
		if err != nil {
			return err
		}
		if existing == nil {
			result.Outcome = domain.UnclaimNoPurchase
			return nil
		}
		if requesterID == uuid.Nil || existing.BuyerID != requesterID {
			result.Outcome = domain.UnclaimNotBuyer
			return nil
		}

		if err := tx.DeletePurchase(ctx, existing.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// покупку успел удалить параллельный запрос
				result.Outcome = domain.UnclaimNoPurchase
				return nil
			}
			return err
		}
		result.Outcome = domain.UnclaimOK
		return nil
	})
	if err != nil {
		uc.logger.Error("unclaim failed", "gift_id", giftID, "requester_id", requesterID, "error", err)
		return domain.UnclaimResult{}, fmt.Errorf("usecase: unclaim gift %s: %w", giftID, err)
	}

	uc.record(func(r OutcomeRecorder) { r.RecordUnclaim(string(result.Outcome)) })
	uc.logger.Info("unclaim processed",
		"gift_id", giftID,
		"requester_id", requesterID,
		"outcome", result.Outcome,
	)
	return result, nil
}

func (uc *purchaseUseCase) ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseListing, error) {
	listings, err := uc.purchases.ListPurchasesByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("usecase: list purchases of %s: %w", buyerID, err)
	}
	return listings, nil
}

func (uc *purchaseUseCase) record(fn func(OutcomeRecorder)) {
	if uc.recorder != nil {
		fn(uc.recorder)
	}
}
