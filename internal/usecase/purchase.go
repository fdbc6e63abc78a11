package usecase

import (
	"context"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

// PurchaseUseCase — сервис отметок о покупке. Только он пишет в таблицу purchases.
type PurchaseUseCase interface {
	// Claim отмечает подарок купленным от имени buyerID.
	// Ожидаемые отказы (свой подарок, уже куплен) возвращаются как Outcome, а не как ошибка.
	// Ошибка означает только непредвиденный сбой хранилища.
	Claim(ctx context.Context, giftID, buyerID uuid.UUID) (domain.ClaimResult, error)

	// Unclaim снимает отметку. Снять ее может только тот, кто ее поставил.
	Unclaim(ctx context.Context, giftID, requesterID uuid.UUID) (domain.UnclaimResult, error)

	// ListPurchases возвращает покупки пользователя, новые сверху.
	ListPurchases(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseListing, error)
}

// OutcomeRecorder принимает исходы операций для метрик.
type OutcomeRecorder interface {
	RecordClaim(outcome string)
	RecordUnclaim(outcome string)
}
