package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/GoArmGo/GiftList/internal/auth"
	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// HealthChecker проверяет доступность зависимостей для /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps — зависимости HTTP-слоя.
type Deps struct {
	Users     usecase.UserUseCase
	Gifts     usecase.GiftUseCase
	Purchases usecase.PurchaseUseCase
	Tokens    *auth.TokenManager
	Limiter   ports.RateLimiter
	Health    HealthChecker

	CookieSecure   bool
	MaxUploadBytes int64
}

// Handler — обработчик HTTP-запросов списка подарков.
type Handler struct {
	users     usecase.UserUseCase
	gifts     usecase.GiftUseCase
	purchases usecase.PurchaseUseCase
	tokens    *auth.TokenManager
	limiter   ports.RateLimiter
	health    HealthChecker
	validate  *validator.Validate

	cookieSecure   bool
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler создаёт новый экземпляр Handler.
func NewHandler(deps Deps, logger *slog.Logger) *Handler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = domain.MaxImageBytes
	}
	return &Handler{
		users:          deps.Users,
		gifts:          deps.Gifts,
		purchases:      deps.Purchases,
		tokens:         deps.Tokens,
		limiter:        deps.Limiter,
		health:         deps.Health,
		validate:       newValidator(),
		cookieSecure:   deps.CookieSecure,
		maxUploadBytes: maxUpload,
		logger:         logger,
	}
}

// respondWithJSON — отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// respondWithError — отправляет JSON-ответ с ошибкой.
func respondWithError(w http.ResponseWriter, code int, message string, logger *slog.Logger) {
	respondWithJSON(w, code, map[string]string{"error": message}, logger)
}

// page — JSON-ответ страницы вместе с ожидающими уведомлениями.
type page struct {
	Notices []Notice     `json:"notices"`
	Viewer  *domain.User `json:"viewer,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
}

// render отдает страницу и забирает уведомления из cookie.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, data interface{}) {
	body := page{Notices: takeNotices(r), Viewer: viewerFrom(r), Data: data}
	writeFlash(w, r, h.cookieSecure)
	respondWithJSON(w, http.StatusOK, body, h.logger)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code int, message string) {
	writeFlash(w, r, h.cookieSecure)
	respondWithError(w, code, message, h.logger)
}

// internalError логирует непредвиденную ошибку и отвечает 500.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	h.logger.Error("request failed", "endpoint", endpoint, "error", err)
	h.fail(w, r, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, http.StatusNotFound, "not found")
}

// redirect всегда 303, чтобы браузер повторил запрос методом GET.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, target string) {
	writeFlash(w, r, h.cookieSecure)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// redirectBack возвращает пользователя на страницу, с которой пришла форма.
// Чужие хосты в Referer игнорируются.
func (h *Handler) redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	h.redirect(w, r, refererOr(r, fallback))
}

func refererOr(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil {
		return fallback
	}
	if u.Host != "" && u.Host != r.Host {
		return fallback
	}
	if u.Host == "" && !isLocalPath(ref) {
		return fallback
	}
	return ref
}

// isLocalPath пропускает только пути внутри сайта ("//evil" отклоняется).
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}

func userGiftsPath(u *domain.User) string {
	return "/users/" + url.PathEscape(u.Username()) + "/gifts"
}

func parseGiftID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// Health — liveness и проверка БД.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, h.logger)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Index отправляет вошедших пользователей к их списку.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if viewerFrom(r) != nil {
		h.redirect(w, r, "/me/gifts")
		return
	}
	h.render(w, r, map[string]string{"app": "GiftList"})
}
