// Package postgres наполняет базу демонстрационными данными через GORM.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DemoPassword — пароль всех демонстрационных пользователей.
const DemoPassword = "password123"

// OpenGorm открывает подключение GORM к той же базе, что и основной клиент.
func OpenGorm(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия соединения GORM: %w", err)
	}
	return db, nil
}

// Seeder создает демонстрационных пользователей, подарки и одну покупку.
type Seeder struct {
	db     *gorm.DB
	hasher ports.PasswordHasher
	now    ports.Clock
	logger *slog.Logger
}

func NewSeeder(db *gorm.DB, hasher ports.PasswordHasher, now ports.Clock, logger *slog.Logger) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{db: db, hasher: hasher, now: now, logger: logger}
}

type demoGift struct {
	owner       int
	title       string
	description string
	url         string
	notes       string
	priceCents  int64
}

var (
	demoUsers = []struct{ name, email string }{
		{"Alice", "alice@example.com"},
		{"Bob", "bob@example.com"},
		{"Carol", "carol@example.com"},
	}
	demoGifts = []demoGift{
		{owner: 0, title: "LEGO Star Wars", description: "Millennium Falcon set", url: "https://lego.com/"},
		{owner: 0, title: "Wool Scarf", notes: "Blue color", priceCents: 2999},
		{owner: 1, title: "Cookbook", description: "Holiday recipes"},
		{owner: 2, title: "Noise Cancelling Headphones", url: "https://example.com/headphones"},
	}
)

// SeedDemoData ничего не делает, если в базе уже есть пользователи.
// Возвращает true, если данные были созданы.
func (s *Seeder) SeedDemoData(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("ошибка подсчета пользователей: %w", err)
	}
	if count > 0 {
		s.logger.Info("database already has users, skipping seed", "users", count)
		return false, nil
	}

	hash, err := s.hasher.Hash(DemoPassword)
	if err != nil {
		return false, fmt.Errorf("hash demo password: %w", err)
	}

	// шаг в секунду, чтобы порядок по created_at был однозначным
	base := s.now().UTC()
	tick := 0
	next := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make([]domain.User, len(demoUsers))
		for i, u := range demoUsers {
			users[i] = domain.User{
				ID:           uuid.New(),
				Email:        u.email,
				Name:         u.name,
				PasswordHash: hash,
				CreatedAt:    next(),
			}
			if err := tx.Create(&users[i]).Error; err != nil {
				return fmt.Errorf("create user %s: %w", u.email, err)
			}
		}

		gifts := make([]domain.Gift, len(demoGifts))
		for i, g := range demoGifts {
			created := next()
			gifts[i] = domain.Gift{
				ID:          uuid.New(),
				OwnerID:     users[g.owner].ID,
				Title:       g.title,
				Description: optional(g.description),
				URL:         optional(g.url),
				Notes:       optional(g.notes),
				CreatedAt:   created,
				UpdatedAt:   created,
			}
			if g.priceCents > 0 {
				price := g.priceCents
				gifts[i].PriceCents = &price
			}
			if err := tx.Create(&gifts[i]).Error; err != nil {
				return fmt.Errorf("create gift %q: %w", g.title, err)
			}
		}

		// Bob уже купил первый подарок Alice.
		// Единственная запись покупки в обход сервиса покупок: сидер работает
		// только с пустой базой, до старта сервера, в той же транзакции, что и подарки.
		purchase := domain.Purchase{
			ID:          uuid.New(),
			GiftID:      gifts[0].ID,
			BuyerID:     users[1].ID,
			PurchasedAt: next(),
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ошибка заполнения демонстрационных данных: %w", err)
	}

	s.logger.Info("demo data seeded", "users", len(demoUsers), "gifts", len(demoGifts))
	return true, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
