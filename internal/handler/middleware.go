package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookieName = "giftlist_session"

// RequestLogger — middleware для логирования HTTP-запросов.
func RequestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Оборачиваем ResponseWriter, чтобы знать статус
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// responseWriter нужен, чтобы перехватывать код ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

type viewerKey struct{}

func withViewer(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, viewerKey{}, u)
}

// viewerFrom возвращает вошедшего пользователя или nil.
func viewerFrom(r *http.Request) *domain.User {
	u, _ := r.Context().Value(viewerKey{}).(*domain.User)
	return u
}

// Session восстанавливает пользователя по cookie сессии.
// Просроченная или подделанная сессия просто стирается.
func (h *Handler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := h.tokens.Parse(c.Value)
		if err != nil {
			h.logger.Debug("session rejected", "error", err)
			h.clearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.users.GetUser(r.Context(), userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.clearSession(w)
			next.ServeHTTP(w, r)
		case err != nil:
			h.internalError(w, r, "Session", err)
		default:
			next.ServeHTTP(w, r.WithContext(withViewer(r.Context(), user)))
		}
	})
}

// RequireAuth отправляет анонимных пользователей на /login с возвратом обратно.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if viewerFrom(r) != nil {
			next.ServeHTTP(w, r)
			return
		}
		addNotice(r, categoryWarning, "Please log in to access this page.")
		h.redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()))
	})
}

// RateLimit ограничивает частоту запросов к формам входа по паре (адрес, путь).
// Если ограничитель недоступен, запрос пропускается.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "auth:" + clientIP(r) + ":" + r.URL.Path
		allowed, err := h.limiter.Allow(r.Context(), key)
		if err != nil {
			h.logger.Warn("rate limiter unavailable", "key", key, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			h.logger.Warn("rate limit exceeded", "key", key)
			addNotice(r, categoryDanger, "Too many requests, please try again later.")
			h.fail(w, r, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) setSession(w http.ResponseWriter, user *domain.User) error {
	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
