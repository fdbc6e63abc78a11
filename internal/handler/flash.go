package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const (
	flashCookieName = "giftlist_flash"
	// Cookie больше ~4КБ браузер молча отбросит.
	maxFlashCookieLen = 3500

	categorySuccess = "success"
	categoryInfo    = "info"
	categoryWarning = "warning"
	categoryDanger  = "danger"
)

// Notice — одноразовое уведомление, показываемое после редиректа.
type Notice struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type flashState struct {
	incoming []Notice
	outgoing []Notice
	consumed bool
}

type flashKey struct{}

// Flash читает уведомления из cookie и кладет их в контекст запроса.
// Записываются они обратно при формировании ответа (см. writeFlash).
func Flash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := &flashState{}
		if c, err := r.Cookie(flashCookieName); err == nil {
			state.incoming = decodeNotices(c.Value)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashKey{}, state)))
	})
}

func flashFrom(r *http.Request) *flashState {
	state, _ := r.Context().Value(flashKey{}).(*flashState)
	return state
}

// addNotice добавляет уведомление, которое увидит следующий запрос.
func addNotice(r *http.Request, category, message string) {
	if state := flashFrom(r); state != nil {
		state.outgoing = append(state.outgoing, Notice{Category: category, Message: message})
	}
}

// takeNotices забирает ожидающие уведомления; cookie будет очищена.
func takeNotices(r *http.Request) []Notice {
	state := flashFrom(r)
	if state == nil || state.consumed {
		return []Notice{}
	}
	state.consumed = true
	if state.incoming == nil {
		return []Notice{}
	}
	return state.incoming
}

// writeFlash выставляет cookie до WriteHeader.
// Непрочитанные входящие уведомления переживают редирект вместе с новыми.
func writeFlash(w http.ResponseWriter, r *http.Request, secure bool) {
	state := flashFrom(r)
	if state == nil {
		return
	}

	var pending []Notice
	if !state.consumed {
		pending = append(pending, state.incoming...)
	}
	pending = append(pending, state.outgoing...)

	switch {
	case len(state.outgoing) > 0:
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    encodeNotices(pending),
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	case state.consumed && len(state.incoming) > 0:
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func encodeNotices(notices []Notice) string {
	for len(notices) > 0 {
		raw, err := json.Marshal(notices)
		if err != nil {
			return ""
		}
		encoded := base64.RawURLEncoding.EncodeToString(raw)
		if len(encoded) <= maxFlashCookieLen {
			return encoded
		}
		// самые старые уведомления отбрасываются первыми
		notices = notices[1:]
	}
	return ""
}

func decodeNotices(value string) []Notice {
	if value == "" || len(value) > maxFlashCookieLen {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var notices []Notice
	if err := json.Unmarshal(raw, &notices); err != nil {
		return nil
	}
	return notices
}
