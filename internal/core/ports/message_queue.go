package ports

import (
	"context"

	"github.com/GoArmGo/GiftList/internal/messaging/payloads"
)

// ImageInferencePublisher ставит в очередь задачи поиска картинки для подарка.
// Используется при создании подарка с URL товара, но без URL картинки.
type ImageInferencePublisher interface {
	PublishImageInference(ctx context.Context, payload payloads.ImageInferencePayload) error
}

// ImageInferenceConsumer используется воркером для получения задач из очереди
type ImageInferenceConsumer interface {
	// StartConsumingImageInference начинает прослушивание очереди,
	// handler вызывается для каждого полученного сообщения
	StartConsumingImageInference(ctx context.Context, handler func(context.Context, payloads.ImageInferencePayload) error) error
}
