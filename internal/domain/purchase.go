package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purchase связывает подарок с покупателем.
// На один подарок приходится не более одной записи (ограничение uq_purchases_gift).
type Purchase struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	GiftID      uuid.UUID `json:"gift_id" db:"gift_id" gorm:"type:uuid"`
	BuyerID     uuid.UUID `json:"buyer_id" db:"buyer_id" gorm:"type:uuid"`
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"`
}

func (Purchase) TableName() string {
	return "purchases"
}

// PurchaseListing — покупка вместе с данными подарка для страницы "мои покупки".
type PurchaseListing struct {
	Purchase
	GiftTitle  string `json:"gift_title" db:"gift_title"`
	OwnerName  string `json:"owner_name" db:"owner_name"`
	OwnerEmail string `json:"-" db:"owner_email"`
}

// ClaimOutcome — результат попытки отметить подарок купленным.
type ClaimOutcome string

const (
	ClaimOK                      ClaimOutcome = "ok"
	ClaimNotFound                ClaimOutcome = "not_found"
	ClaimSelfPurchase            ClaimOutcome = "self_purchase"
	ClaimAlreadyPurchasedByBuyer ClaimOutcome = "already_purchased_by_buyer"
	ClaimAlreadyPurchasedByOther ClaimOutcome = "already_purchased_by_other"
)

// ClaimResult возвращается сервисом покупок. Purchase заполнен только при ClaimOK.
type ClaimResult struct {
	Outcome  ClaimOutcome
	Purchase *Purchase
	Gift     *Gift
}

// UnclaimOutcome — результат снятия отметки о покупке.
type UnclaimOutcome string

const (
	UnclaimOK         UnclaimOutcome = "ok"
	UnclaimNotFound   UnclaimOutcome = "not_found"
	UnclaimNoPurchase UnclaimOutcome = "no_purchase"
	UnclaimNotBuyer   UnclaimOutcome = "not_buyer"
)

// UnclaimResult возвращается сервисом покупок.
type UnclaimResult struct {
	Outcome UnclaimOutcome
	Gift    *Gift
}
