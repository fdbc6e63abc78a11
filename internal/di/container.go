package di

import (
	"context"
	"fmt"
	"time"

	"github.com/GoArmGo/GiftList/internal/adapter/imagemeta"
	"github.com/GoArmGo/GiftList/internal/adapter/storage/minio"
	"github.com/GoArmGo/GiftList/internal/app"
	"github.com/GoArmGo/GiftList/internal/auth"
	"github.com/GoArmGo/GiftList/internal/config"
	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/database/client"
	"github.com/GoArmGo/GiftList/internal/database/postgres"
	"github.com/GoArmGo/GiftList/internal/database/storage"
	"github.com/GoArmGo/GiftList/internal/handler"
	"github.com/GoArmGo/GiftList/internal/logger"
	"github.com/GoArmGo/GiftList/internal/metrics"
	"github.com/GoArmGo/GiftList/internal/rabbitmq"
	"github.com/GoArmGo/GiftList/internal/ratelimit"
	"github.com/GoArmGo/GiftList/internal/usecase"
)

// BuildApp инициализирует все зависимости и возвращает готовый объект App.
// Объектное хранилище и очередь необязательны: без них картинки не загружаются,
// а поиск картинки выполняется прямо в запросе.
func BuildApp(ctx context.Context) (*app.App, error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	var deps app.Deps
	fail := func(err error) (*app.App, error) {
		app.NewApp(cfg, slogger, deps).Shutdown()
		return nil, err
	}

	// 2. Инициализация PostgreSQL клиента и миграции
	dbClient, err := client.NewClient(cfg, slogger)
	if err != nil {
		return nil, err
	}
	deps.Closers = append(deps.Closers, dbClient.Close)

	if err := client.ApplyMigrations(cfg.DatabaseURL, slogger); err != nil {
		return fail(err)
	}

	// 3. Инициализация хранилищ
	userStorage := storage.NewUserStorage(dbClient.DB, slogger)
	giftStorage := storage.NewGiftStorage(dbClient.DB, slogger)
	purchaseStorage := storage.NewPurchaseStorage(dbClient.DB, slogger)

	appMetrics := metrics.New()
	hasher := auth.NewBcryptHasher()
	meta := imagemeta.NewClient(cfg.MaxUploadBytes, slogger)

	giftDeps := usecase.GiftDeps{
		Gifts:      giftStorage,
		Purchases:  purchaseStorage,
		Resolver:   meta,
		Downloader: meta,
		Recorder:   appMetrics,
		Now:        time.Now,
	}

	// 4. Объектное хранилище (S3 / MinIO)
	if cfg.MinioEnabled() {
		fileStorage, err := minio.NewMinioClient(ctx, cfg, slogger)
		if err != nil {
			return fail(err)
		}
		giftDeps.Files = fileStorage
	} else {
		slogger.Warn("object storage is not configured, image uploads are disabled")
	}

	// 5. Инициализация RabbitMQ клиента
	if cfg.RabbitMQ.RabbitMQURL != "" {
		rabbitMQClient, err := rabbitmq.NewClient(cfg, slogger)
		if err != nil {
			return fail(err)
		}
		deps.Closers = append(deps.Closers, func() error {
			rabbitMQClient.Close()
			return nil
		})
		giftDeps.Publisher = rabbitMQClient
		deps.Consumer = rabbitMQClient
	} else {
		slogger.Warn("RABBITMQ_URL is empty, image inference runs inline")
	}

	// 6. Ограничитель частоты запросов к формам входа
	limiter, err := buildRateLimiter(ctx, cfg, &deps)
	if err != nil {
		return fail(err)
	}

	// 7. Инициализация бизнес-логики (usecases)
	userUseCase := usecase.NewUserUseCase(userStorage, hasher, time.Now, slogger)
	giftUseCase := usecase.NewGiftUseCase(giftDeps, slogger)
	purchaseUseCase := usecase.NewPurchaseUseCase(purchaseStorage, appMetrics, time.Now, slogger)
	deps.GiftUseCase = giftUseCase

	// 8. HTTP
	h := handler.NewHandler(handler.Deps{
		Users:          userUseCase,
		Gifts:          giftUseCase,
		Purchases:      purchaseUseCase,
		Tokens:         auth.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL),
		Limiter:        limiter,
		Health:         dbClient,
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, slogger)
	deps.Router = handler.NewRouter(h, appMetrics, cfg.RequestTimeout, slogger)

	// 9. Демо-данные пишутся через GORM отдельным соединением
	gormDB, err := postgres.OpenGorm(cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	deps.Closers = append(deps.Closers, func() error {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	deps.Seeder = postgres.NewSeeder(gormDB, hasher, time.Now, slogger)

	slogger.Info("all dependencies initialized")
	return app.NewApp(cfg, slogger, deps), nil
}

func buildRateLimiter(ctx context.Context, cfg *config.Config, deps *app.Deps) (ports.RateLimiter, error) {
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RateLimit.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis rate limiter: %w", err)
		}
		deps.Closers = append(deps.Closers, rdb.Close)
		return ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Auth, cfg.RateLimit.Window), nil
	default:
		limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.Auth, cfg.RateLimit.Window)
		deps.Background = append(deps.Background, func(ctx context.Context) {
			limiter.StartCleanup(ctx, cfg.RateLimit.Window)
		})
		return limiter, nil
	}
}
