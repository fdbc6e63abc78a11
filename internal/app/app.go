package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/GiftList/internal/config"
	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/usecase"
)

// DemoSeeder заполняет пустую базу демонстрационными данными.
type DemoSeeder interface {
	SeedDemoData(ctx context.Context) (bool, error)
}

// Deps — собранные зависимости для всех режимов запуска.
type Deps struct {
	Router      http.Handler
	GiftUseCase usecase.GiftUseCase
	Consumer    ports.ImageInferenceConsumer
	Seeder      DemoSeeder
	// Background запускается вместе с сервером (очистка лимитера и т.п.)
	Background []func(ctx context.Context)
	// Closers закрываются при завершении в обратном порядке.
	Closers []func() error
}

type App struct {
	Config *config.Config
	logger *slog.Logger
	deps   Deps
}

func NewApp(cfg *config.Config, logger *slog.Logger, deps Deps) *App {
	return &App{Config: cfg, logger: logger, deps: deps}
}

// LoggerIns возвращает основной логгер приложения.
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в режиме server, worker или seed
// и блокируется до сигнала завершения.
func (a *App) Run(ctx context.Context, mode string) error {
	// канал для graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.Shutdown()

	a.logger.Info("starting", "mode", mode)

	if a.Config.SeedOnStart && mode != "seed" {
		if err := a.seed(ctx); err != nil {
			return err
		}
	}

	switch mode {
	case "server":
		return runServer(ctx, a.Config, a.deps.Router, a.deps.Background, a.logger)
	case "worker":
		return runWorker(ctx, a.deps.GiftUseCase, a.deps.Consumer, a.logger)
	case "seed":
		return a.seed(ctx)
	default:
		return fmt.Errorf("неизвестный режим: %s (используйте 'server', 'worker' или 'seed')", mode)
	}
}

func (a *App) seed(ctx context.Context) error {
	if a.deps.Seeder == nil {
		return errors.New("seeder is not configured")
	}
	seeded, err := a.deps.Seeder.SeedDemoData(ctx)
	if err != nil {
		return fmt.Errorf("ошибка заполнения демо-данными: %w", err)
	}
	a.logger.Info("demo data", "seeded", seeded)
	return nil
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() {
	for i := len(a.deps.Closers) - 1; i >= 0; i-- {
		if err := a.deps.Closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
	a.deps.Closers = nil
	a.logger.Info("shutdown complete")
}
