package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxTitleLength = 255
	MaxTextLength  = 2000
	MaxURLLength   = 512
)

// Gift представляет позицию списка желаний,
// соответствует таблице gifts в бд.
// Владелец задается при создании и больше не меняется.
type Gift struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id" gorm:"type:uuid"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	URL         *string   `json:"url,omitempty" db:"url"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	ImagePath   *string   `json:"image_path,omitempty" db:"image_path"`
	PriceCents  *int64    `json:"price_cents,omitempty" db:"price_cents"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (Gift) TableName() string {
	return "gifts"
}

// GiftDetails — изменяемые владельцем поля подарка.
type GiftDetails struct {
	Title       string
	Description *string
	URL         *string
	ImageURL    *string
	PriceCents  *int64
	Notes       *string
}

// Apply переносит изменяемые поля в подарок, не трогая владельца и идентификатор.
func (d GiftDetails) Apply(g *Gift) {
	g.Title = d.Title
	g.Description = d.Description
	g.URL = d.URL
	g.ImageURL = d.ImageURL
	g.PriceCents = d.PriceCents
	g.Notes = d.Notes
}
