package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Формы приходят как application/x-www-form-urlencoded или multipart.

type registerForm struct {
	Name     string `form:"name" validate:"min=2,max=120"`
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"min=6,max=128"`
	Confirm  string `form:"confirm" validate:"eqfield=Password"`
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email,max=255"`
	Password string `form:"password" validate:"required"`
}

type passwordResetForm struct {
	Email string `form:"email" validate:"required,email,max=255"`
}

type giftForm struct {
	Title       string `form:"title" validate:"min=1,max=255"`
	Description string `form:"description" validate:"max=2000"`
	URL         string `form:"url" validate:"omitempty,max=512,httpurl"`
	ImageURL    string `form:"image_url" validate:"omitempty,max=512,httpurl"`
	Price       string `form:"price" validate:"omitempty,price"`
	Notes       string `form:"notes" validate:"max=2000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return isHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, err := parsePriceCents(fl.Field().String())
		return err == nil
	})
	return v
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// parsePriceCents переводит десятичную строку ("12.5", "12,50") в центы.
// Допускается не больше двух знаков после запятой.
func parsePriceCents(raw string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, errors.New("empty price")
	}
	if len(frac) > 2 || (hasFrac && frac == "") {
		return 0, fmt.Errorf("price %q: too many decimal places", raw)
	}
	if whole == "" {
		whole = "0"
	}
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("price %q: not a number", raw)
			}
		}
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (1<<53)/100 {
		return 0, fmt.Errorf("price %q: out of range", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	return units*100 + cents, nil
}

// validationMessage превращает первую ошибку валидатора в текст уведомления.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid form data"
	}
	fe := verrs[0]
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Param() == "1" {
			return field + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "eqfield":
		return "Passwords must match"
	case "httpurl":
		return "URL must start with http or https"
	case "price":
		return "Price must be a non-negative number with at most two decimal places"
	default:
		return field + " is invalid"
	}
}

func fieldLabel(name string) string {
	switch name {
	case "image_url":
		return "Image URL"
	case "url":
		return "Product URL"
	case "":
		return "Field"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func readRegisterForm(r *http.Request) registerForm {
	return registerForm{
		Name:     formValue(r, "name"),
		Email:    formValue(r, "email"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
}

func readLoginForm(r *http.Request) loginForm {
	return loginForm{Email: formValue(r, "email"), Password: r.FormValue("password")}
}

func readGiftForm(r *http.Request) giftForm {
	return giftForm{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		URL:         formValue(r, "url"),
		ImageURL:    formValue(r, "image_url"),
		Price:       formValue(r, "price"),
		Notes:       formValue(r, "notes"),
	}
}

// details переводит проверенную форму в поля подарка; пустые строки становятся NULL.
func (f giftForm) details() domain.GiftDetails {
	d := domain.GiftDetails{
		Title:       f.Title,
		Description: optional(f.Description),
		URL:         optional(f.URL),
		ImageURL:    optional(f.ImageURL),
		Notes:       optional(f.Notes),
	}
	if f.Price != "" {
		if cents, err := parsePriceCents(f.Price); err == nil {
			d.PriceCents = &cents
		}
	}
	return d
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
