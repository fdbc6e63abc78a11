package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/GiftList/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает маршруты приложения.
// m может быть nil, тогда /metrics не публикуется.
func NewRouter(h *Handler, m *metrics.Metrics, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Get("/healthz", h.Health)
	r.Get("/uploads/*", h.ServeUpload)

	r.Group(func(r chi.Router) {
		r.Use(Flash)
		r.Use(h.Session)

		r.Get("/", h.Index)

		r.Group(func(r chi.Router) {
			r.Use(h.RateLimit)
			r.Get("/register", h.FormPage("register"))
			r.Post("/register", h.Register)
			r.Get("/login", h.FormPage("login"))
			r.Post("/login", h.Login)
			r.Get("/password-reset", h.FormPage("password-reset"))
			r.Post("/password-reset", h.PasswordReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Post("/logout", h.Logout)

			r.Get("/me/gifts", h.MyGifts)
			r.Get("/me/purchases", h.MyPurchases)

			r.Post("/gifts/create", h.CreateGift)
			r.Get("/gifts/{id}", h.GetGift)
			r.Post("/gifts/{id}/edit", h.EditGift)
			r.Post("/gifts/{id}/delete", h.DeleteGift)
			r.Post("/gifts/{id}/image", h.UploadGiftImage)
			r.Post("/gifts/{id}/purchase", h.PurchaseGift)
			r.Post("/gifts/{id}/unpurchase", h.UnpurchaseGift)

			r.Post("/images/fetch", h.FetchImage)

			r.Get("/users", h.ListUsers)
			r.Get("/users/{name}/gifts", h.UserGifts)
		})
	})

	return r
}
