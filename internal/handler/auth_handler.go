package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/GoArmGo/GiftList/internal/domain"
)

// FormPage отдает пустую форму (register, login, password-reset) с уведомлениями.
func (h *Handler) FormPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if viewerFrom(r) != nil && name != "password-reset" {
			h.redirect(w, r, "/me/gifts")
			return
		}
		data := map[string]string{"form": name}
		if next := r.URL.Query().Get("next"); next != "" && isLocalPath(next) {
			data["next"] = next
		}
		h.render(w, r, data)
	}
}

// Register создает пользователя и сразу выполняет вход.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if viewerFrom(r) != nil {
		h.redirect(w, r, "/me/gifts")
		return
	}

	form := readRegisterForm(r)
	if err := h.validate.Struct(form); err != nil {
		addNotice(r, categoryDanger, validationMessage(err))
		h.redirect(w, r, "/register")
		return
	}

	h.logger.Info("processing request", "endpoint", "Register")

	user, err := h.users.Register(r.Context(), form.Name, form.Email, form.Password)
	if errors.Is(err, domain.ErrEmailTaken) {
		addNotice(r, categoryDanger, "Email already registered.")
		h.redirect(w, r, "/register")
		return
	}
	if err != nil {
		h.internalError(w, r, "Register", err)
		return
	}

	if err := h.setSession(w, user); err != nil {
		h.internalError(w, r, "Register", err)
		return
	}
	addNotice(r, categorySuccess, "Welcome to GiftList!")
	h.redirect(w, r, "/me/gifts")
}

// Login проверяет пароль и выставляет сессионную cookie.
// Параметр next учитывается, только если это путь внутри сайта.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if viewerFrom(r) != nil {
		h.redirect(w, r, "/me/gifts")
		return
	}

	next := r.FormValue("next")
	if !isLocalPath(next) {
		next = ""
	}
	loginPage := "/login"
	if next != "" {
		loginPage += "?next=" + url.QueryEscape(next)
	}

	form := readLoginForm(r)
	if err := h.validate.Struct(form); err != nil {
		addNotice(r, categoryDanger, validationMessage(err))
		h.redirect(w, r, loginPage)
		return
	}

	user, err := h.users.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		addNotice(r, categoryDanger, "Invalid credentials")
		h.redirect(w, r, loginPage)
		return
	}
	if err != nil {
		h.internalError(w, r, "Login", err)
		return
	}

	if err := h.setSession(w, user); err != nil {
		h.internalError(w, r, "Login", err)
		return
	}
	h.logger.Info("user logged in", "user_id", user.ID)

	addNotice(r, categorySuccess, "Logged in successfully")
	if next == "" {
		next = "/me/gifts"
	}
	h.redirect(w, r, next)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	addNotice(r, categoryInfo, "You have been logged out")
	h.redirect(w, r, "/login")
}

// PasswordReset — заглушка: письма не отправляются.
func (h *Handler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	form := passwordResetForm{Email: formValue(r, "email")}
	if err := h.validate.Struct(form); err != nil {
		addNotice(r, categoryDanger, validationMessage(err))
		h.redirect(w, r, "/password-reset")
		return
	}
	addNotice(r, categoryInfo, "Password reset functionality is not implemented yet.")
	h.redirect(w, r, "/login")
}
