package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/messaging/payloads"
	"github.com/GoArmGo/GiftList/internal/usecase"
)

// imageInferenceHandler превращает сообщение очереди в вызов бизнес-логики.
func imageInferenceHandler(gifts usecase.GiftUseCase, logger *slog.Logger) func(context.Context, payloads.ImageInferencePayload) error {
	return func(ctx context.Context, payload payloads.ImageInferencePayload) error {
		logger.Info("processing image inference job", "gift_id", payload.GiftID, "page_url", payload.PageURL)

		if err := gifts.InferImage(ctx, payload); err != nil {
			logger.Error("image inference job failed", "gift_id", payload.GiftID, "error", err)
			return err
		}
		return nil
	}
}

// runWorker запускает потребителя RabbitMQ и обрабатывает сообщения, пока ctx не отменен.
func runWorker(
	ctx context.Context,
	gifts usecase.GiftUseCase,
	consumer ports.ImageInferenceConsumer,
	logger *slog.Logger,
) error {
	if consumer == nil {
		return errors.New("worker mode requires RABBITMQ_URL")
	}

	if err := consumer.StartConsumingImageInference(ctx, imageInferenceHandler(gifts, logger)); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}
	logger.Info("worker started, waiting for image inference jobs")

	<-ctx.Done()
	logger.Info("worker stopped")
	return nil
}
