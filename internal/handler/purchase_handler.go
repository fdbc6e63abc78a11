package handler

import (
	"net/http"

	"github.com/GoArmGo/GiftList/internal/domain"
)

var claimNotices = map[domain.ClaimOutcome]Notice{
	domain.ClaimOK:                      {Category: categorySuccess, Message: "Gift marked as purchased!"},
	domain.ClaimSelfPurchase:            {Category: categoryWarning, Message: "You cannot purchase your own gift"},
	domain.ClaimAlreadyPurchasedByBuyer: {Category: categoryInfo, Message: "You already purchased this gift"},
	domain.ClaimAlreadyPurchasedByOther: {Category: categoryWarning, Message: "This gift has already been purchased"},
}

var unclaimNotices = map[domain.UnclaimOutcome]Notice{
	domain.UnclaimOK:         {Category: categoryInfo, Message: "Purchase removed"},
	domain.UnclaimNoPurchase: {Category: categoryInfo, Message: "This gift is not marked as purchased"},
	domain.UnclaimNotBuyer:   {Category: categoryDanger, Message: "You can only unmark gifts you purchased"},
}

// PurchaseGift отмечает подарок купленным текущим пользователем.
func (h *Handler) PurchaseGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	viewer := viewerFrom(r)

	h.logger.Info("processing request", "endpoint", "PurchaseGift", "gift_id", giftID, "user_id", viewer.ID)

	res, err := h.purchases.Claim(r.Context(), giftID, viewer.ID)
	if err != nil {
		h.internalError(w, r, "PurchaseGift", err)
		return
	}
	notice, known := claimNotices[res.Outcome]
	if !known || res.Gift == nil {
		h.notFound(w, r)
		return
	}

	addNotice(r, notice.Category, notice.Message)
	h.redirectAfterPurchase(w, r, res.Gift)
}

// UnpurchaseGift снимает отметку; снять ее может только покупатель.
func (h *Handler) UnpurchaseGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := parseGiftID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	viewer := viewerFrom(r)

	h.logger.Info("processing request", "endpoint", "UnpurchaseGift", "gift_id", giftID, "user_id", viewer.ID)

	res, err := h.purchases.Unclaim(r.Context(), giftID, viewer.ID)
	if err != nil {
		h.internalError(w, r, "UnpurchaseGift", err)
		return
	}
	notice, known := unclaimNotices[res.Outcome]
	if !known || res.Gift == nil {
		h.notFound(w, r)
		return
	}

	addNotice(r, notice.Category, notice.Message)
	h.redirectAfterPurchase(w, r, res.Gift)
}

// MyPurchases — покупки текущего пользователя, новые сверху.
func (h *Handler) MyPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.purchases.ListPurchases(r.Context(), viewerFrom(r).ID)
	if err != nil {
		h.internalError(w, r, "MyPurchases", err)
		return
	}
	h.render(w, r, map[string]interface{}{"purchases": purchases})
}

// redirectAfterPurchase ведет на Referer, иначе на список владельца подарка.
func (h *Handler) redirectAfterPurchase(w http.ResponseWriter, r *http.Request, gift *domain.Gift) {
	if target := refererOr(r, ""); target != "" {
		h.redirect(w, r, target)
		return
	}
	owner, err := h.users.GetUser(r.Context(), gift.OwnerID)
	if err != nil {
		h.logger.Warn("failed to load gift owner", "gift_id", gift.ID, "error", err)
		h.redirect(w, r, "/me/gifts")
		return
	}
	h.redirect(w, r, userGiftsPath(owner))
}
