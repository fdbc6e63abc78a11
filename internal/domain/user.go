// internal/domain/user.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User представляет модель пользователя в системе.
// Соответствует таблице 'users' в базе данных.
type User struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Username — часть email до "@", используется в адресах вида /users/{name}/gifts.
func (u User) Username() string {
	return UsernameFromEmail(u.Email)
}

// UsernameFromEmail возвращает локальную часть адреса.
func UsernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

// NormalizeEmail приводит адрес к виду, в котором он хранится в БД.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
