package policy

import (
	"fmt"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

// AssertOwner возвращает ошибку, оборачивающую domain.ErrForbidden,
// если actorID не является владельцем подарка.
func AssertOwner(gift domain.Gift, actorID uuid.UUID) error {
	if actorID == uuid.Nil || actorID != gift.OwnerID {
		return fmt.Errorf("gift %s: actor %s is not the owner: %w", gift.ID, actorID, domain.ErrForbidden)
	}
	return nil
}
