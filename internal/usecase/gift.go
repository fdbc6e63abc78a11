package usecase

import (
	"context"
	"errors"
	"io"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/messaging/payloads"
	"github.com/GoArmGo/GiftList/internal/policy"
	"github.com/google/uuid"
)

// ErrImagesDisabled возвращается, когда объектное хранилище не настроено.
var ErrImagesDisabled = errors.New("image storage is not configured")

// GiftView — подарок в том виде, в каком его видит конкретный зритель.
// Покупатель не раскрывается: состояние говорит только "вы" или "кто-то другой".
type GiftView struct {
	domain.Gift
	PurchaseState policy.PurchaseState `json:"purchase_state"`
	Actions       policy.Actions       `json:"actions"`
}

// GiftUseCase определяет бизнес-логику работы с подарками
type GiftUseCase interface {
	// CreateGift сохраняет подарок и, если у него есть ссылка на товар, но нет картинки,
	// ставит задачу поиска картинки.
	CreateGift(ctx context.Context, ownerID uuid.UUID, details domain.GiftDetails) (*domain.Gift, error)

	// UpdateGift и DeleteGift доступны только владельцу (domain.ErrForbidden).
	UpdateGift(ctx context.Context, giftID, actorID uuid.UUID, details domain.GiftDetails) (*domain.Gift, error)
	DeleteGift(ctx context.Context, giftID, actorID uuid.UUID) (*domain.Gift, error)

	GetGift(ctx context.Context, giftID, viewerID uuid.UUID) (*GiftView, error)

	// ListOwnGifts — подарки владельца, новые сверху; состояние покупки всегда скрыто.
	ListOwnGifts(ctx context.Context, ownerID uuid.UUID) ([]GiftView, error)

	// ListUserGifts — подарки owner глазами viewerID, старые сверху.
	ListUserGifts(ctx context.Context, owner domain.User, viewerID uuid.UUID) ([]GiftView, error)

	// UploadGiftImage сохраняет картинку подарка в объектное хранилище и возвращает ключ.
	UploadGiftImage(ctx context.Context, giftID, actorID uuid.UUID, r io.Reader, contentType string) (string, error)

	// FetchImage скачивает картинку по URL в объектное хранилище и возвращает ключ.
	FetchImage(ctx context.Context, actorID uuid.UUID, imageURL string) (string, error)

	// OpenImage открывает сохраненную картинку для отдачи клиенту.
	OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error)

	// InferImage выполняет задачу поиска картинки по странице товара.
	InferImage(ctx context.Context, payload payloads.ImageInferencePayload) error
}
