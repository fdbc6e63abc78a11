package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/go-chi/chi/v5"
)

type userEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func toUserEntry(u domain.User) userEntry {
	return userEntry{ID: u.ID.String(), Name: u.Name, Username: u.Username()}
}

// ListUsers — каталог пользователей с поиском по имени и email.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	users, err := h.users.SearchUsers(r.Context(), query)
	if err != nil {
		h.internalError(w, r, "ListUsers", err)
		return
	}

	entries := make([]userEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, toUserEntry(u))
	}
	h.render(w, r, map[string]interface{}{"query": query, "users": entries})
}

// UserGifts — подарки пользователя глазами текущего зрителя, старые сверху.
func (h *Handler) UserGifts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "name")
	viewer := viewerFrom(r)

	owner, err := h.users.FindByUsername(r.Context(), username)
	if errors.Is(err, domain.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.internalError(w, r, "UserGifts", err)
		return
	}

	gifts, err := h.gifts.ListUserGifts(r.Context(), *owner, viewer.ID)
	if err != nil {
		h.internalError(w, r, "UserGifts", err)
		return
	}
	h.render(w, r, map[string]interface{}{
		"user":           toUserEntry(*owner),
		"is_owner":       owner.ID == viewer.ID,
		"show_purchases": owner.ID != viewer.ID,
		"gifts":          gifts,
	})
}
