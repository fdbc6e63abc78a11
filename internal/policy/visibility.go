// Package policy содержит чистые правила доступа: кто видит статус покупки
// и кто может изменять подарок. Функции не обращаются к хранилищу.
package policy

import (
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

// PurchaseState — то, что зритель может узнать о покупке подарка.
type PurchaseState string

const (
	StateHidden          PurchaseState = "hidden"
	StateUnclaimed       PurchaseState = "unclaimed"
	StateClaimedByViewer PurchaseState = "claimed_by_viewer"
	StateClaimedByOther  PurchaseState = "claimed_by_other"
)

// CanSeePurchaseInfo сравнивает только идентификаторы: владелец никогда не видит
// статус покупки своего подарка, все остальные (включая анонимных) — видят.
func CanSeePurchaseInfo(gift domain.Gift, viewerID uuid.UUID) bool {
	return viewerID != gift.OwnerID
}

// RenderablePurchaseState определяет состояние подарка для конкретного зрителя.
// purchase может быть nil, если подарок не куплен.
func RenderablePurchaseState(gift domain.Gift, purchase *domain.Purchase, viewerID uuid.UUID) PurchaseState {
	if !CanSeePurchaseInfo(gift, viewerID) {
		return StateHidden
	}
	if purchase == nil {
		return StateUnclaimed
	}
	if purchase.BuyerID == viewerID {
		return StateClaimedByViewer
	}
	return StateClaimedByOther
}

// Actions — кнопки, которые слой представления может показать зрителю.
type Actions struct {
	CanPurchase   bool `json:"can_purchase"`
	CanUnpurchase bool `json:"can_unpurchase"`
	ShowBadge     bool `json:"show_badge"`
}

// ActionsFor выводит доступные действия из состояния.
func ActionsFor(state PurchaseState) Actions {
	return Actions{
		CanPurchase:   state == StateUnclaimed,
		CanUnpurchase: state == StateClaimedByViewer,
		ShowBadge:     state == StateClaimedByViewer || state == StateClaimedByOther,
	}
}
