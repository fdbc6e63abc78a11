package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/GiftList/internal/core/ports"
	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/GoArmGo/GiftList/internal/messaging/payloads"
	"github.com/GoArmGo/GiftList/internal/policy"
	"github.com/google/uuid"
)

// InferenceRecorder принимает результаты поиска картинок для метрик.
type InferenceRecorder interface {
	RecordImageInference(result string)
}

// GiftDeps собирает зависимости сервиса подарков.
// Files, Publisher, Resolver, Downloader и Recorder необязательны.
type GiftDeps struct {
	Gifts      ports.GiftStorage
	Purchases  ports.PurchaseStorage
	Files      ports.FileStorage
	Publisher  ports.ImageInferencePublisher
	Resolver   ports.ImageURLResolver
	Downloader ports.ImageDownloader
	Recorder   InferenceRecorder
	Now        ports.Clock
}

// giftUseCase implements GiftUseCase
type giftUseCase struct {
	gifts      ports.GiftStorage
	purchases  ports.PurchaseStorage
	files      ports.FileStorage
	publisher  ports.ImageInferencePublisher
	resolver   ports.ImageURLResolver
	downloader ports.ImageDownloader
	recorder   InferenceRecorder
	now        ports.Clock
	logger     *slog.Logger
}

func NewGiftUseCase(deps GiftDeps, logger *slog.Logger) GiftUseCase {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &giftUseCase{
		gifts:      deps.Gifts,
		purchases:  deps.Purchases,
		files:      deps.Files,
		publisher:  deps.Publisher,
		resolver:   deps.Resolver,
		downloader: deps.Downloader,
		recorder:   deps.Recorder,
		now:        now,
		logger:     logger,
	}
}

func (uc *giftUseCase) CreateGift(ctx context.Context, ownerID uuid.UUID, details domain.GiftDetails) (*domain.Gift, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("create gift without owner: %w", domain.ErrForbidden)
	}

	now := uc.now().UTC()
	gift := &domain.Gift{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	details.Apply(gift)

	if err := uc.gifts.CreateGift(ctx, gift); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при сохранении подарка: %w", err)
	}

	if needsImageInference(gift) {
		uc.scheduleInference(ctx, payloads.ImageInferencePayload{GiftID: gift.ID, PageURL: *gift.URL})
	}
	return gift, nil
}

func (uc *giftUseCase) UpdateGift(ctx context.Context, giftID, actorID uuid.UUID, details domain.GiftDetails) (*domain.Gift, error) {
	gift, err := uc.ownedGift(ctx, giftID, actorID)
	if err != nil {
		return nil, err
	}

	details.Apply(gift)
	if err := uc.gifts.UpdateGift(ctx, gift); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при обновлении подарка %s: %w", giftID, err)
	}

	if needsImageInference(gift) {
		uc.scheduleInference(ctx, payloads.ImageInferencePayload{GiftID: gift.ID, PageURL: *gift.URL})
	}
	return gift, nil
}

func (uc *giftUseCase) DeleteGift(ctx context.Context, giftID, actorID uuid.UUID) (*domain.Gift, error) {
	gift, err := uc.ownedGift(ctx, giftID, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.gifts.DeleteGift(ctx, giftID); err != nil {
		return nil, fmt.Errorf("usecase: ошибка при удалении подарка %s: %w", giftID, err)
	}

	if gift.ImagePath != nil && uc.files != nil {
		if err := uc.files.DeleteFile(ctx, *gift.ImagePath); err != nil {
			uc.logger.Warn("failed to delete gift image", "gift_id", giftID, "key", *gift.ImagePath, "error", err)
		}
	}
	return gift, nil
}

func (uc *giftUseCase) GetGift(ctx context.Context, giftID, viewerID uuid.UUID) (*GiftView, error) {
	gift, err := uc.gifts.GetGiftByID(ctx, giftID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении подарка %s: %w", giftID, err)
	}
	views, err := uc.views(ctx, []domain.Gift{*gift}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (uc *giftUseCase) ListOwnGifts(ctx context.Context, ownerID uuid.UUID) ([]GiftView, error) {
	gifts, err := uc.gifts.ListGiftsByOwner(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении своих подарков: %w", err)
	}
	return uc.views(ctx, gifts, ownerID)
}

func (uc *giftUseCase) ListUserGifts(ctx context.Context, owner domain.User, viewerID uuid.UUID) ([]GiftView, error) {
	gifts, err := uc.gifts.ListGiftsByOwner(ctx, owner.ID, false)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении подарков пользователя %s: %w", owner.ID, err)
	}
	return uc.views(ctx, gifts, viewerID)
}

// views применяет политику видимости к каждому подарку.
// Покупки загружаются только для подарков, статус которых зрителю разрешено видеть.
func (uc *giftUseCase) views(ctx context.Context, gifts []domain.Gift, viewerID uuid.UUID) ([]GiftView, error) {
	visible := make([]uuid.UUID, 0, len(gifts))
	for _, g := range gifts {
		if policy.CanSeePurchaseInfo(g, viewerID) {
			visible = append(visible, g.ID)
		}
	}

	byGift := map[uuid.UUID]domain.Purchase{}
	if len(visible) > 0 {
		var err error
		byGift, err = uc.purchases.PurchasesForGifts(ctx, visible)
		if err != nil {
			return nil, fmt.Errorf("usecase: ошибка при получении покупок: %w", err)
		}
	}

	views := make([]GiftView, 0, len(gifts))
	for _, g := range gifts {
		var purchase *domain.Purchase
		if p, ok := byGift[g.ID]; ok {
			purchase = &p
		}
		state := policy.RenderablePurchaseState(g, purchase, viewerID)
		views = append(views, GiftView{Gift: g, PurchaseState: state, Actions: policy.ActionsFor(state)})
	}
	return views, nil
}

func (uc *giftUseCase) UploadGiftImage(ctx context.Context, giftID, actorID uuid.UUID, r io.Reader, contentType string) (string, error) {
	if uc.files == nil {
		return "", ErrImagesDisabled
	}
	gift, err := uc.ownedGift(ctx, giftID, actorID)
	if err != nil {
		return "", err
	}
	ext, ok := domain.ImageExtension(contentType)
	if !ok {
		return "", fmt.Errorf("content type %q: %w", contentType, domain.ErrValidation)
	}

	key := fmt.Sprintf("gifts/%s/%s%s", giftID, uuid.NewString(), ext)
	key, err = uc.files.UploadFile(ctx, key, r, contentType)
	if err != nil {
		return "", fmt.Errorf("usecase: ошибка загрузки изображения подарка %s: %w", giftID, err)
	}
	if err := uc.gifts.SetGiftImagePath(ctx, giftID, key); err != nil {
		return "", fmt.Errorf("usecase: ошибка сохранения пути изображения: %w", err)
	}

	if gift.ImagePath != nil && *gift.ImagePath != key {
		if err := uc.files.DeleteFile(ctx, *gift.ImagePath); err != nil {
			uc.logger.Warn("failed to delete previous gift image", "gift_id", giftID, "key", *gift.ImagePath, "error", err)
		}
	}

	uc.logger.Info("gift image uploaded", "gift_id", giftID, "key", key)
	return key, nil
}

func (uc *giftUseCase) FetchImage(ctx context.Context, actorID uuid.UUID, imageURL string) (string, error) {
	if uc.files == nil || uc.downloader == nil {
		return "", ErrImagesDisabled
	}
	body, contentType, err := uc.downloader.Download(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("usecase: не удалось скачать изображение: %w", err)
	}
	defer body.Close()

	ext, ok := domain.ImageExtension(contentType)
	if !ok {
		return "", fmt.Errorf("content type %q: %w", contentType, domain.ErrValidation)
	}
	key := fmt.Sprintf("fetched/%s/%s%s", actorID, uuid.NewString(), ext)
	key, err = uc.files.UploadFile(ctx, key, body, contentType)
	if err != nil {
		return "", fmt.Errorf("usecase: ошибка загрузки изображения: %w", err)
	}

	uc.logger.Info("remote image stored", "user_id", actorID, "key", key)
	return key, nil
}

func (uc *giftUseCase) OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if uc.files == nil {
		return nil, "", ErrImagesDisabled
	}
	if key == "" || strings.Contains(key, "..") {
		return nil, "", fmt.Errorf("image key %q: %w", key, domain.ErrNotFound)
	}
	return uc.files.GetFile(ctx, key)
}

// InferImage ищет картинку на странице товара и записывает ее, если пользователь
// не успел задать свою.
func (uc *giftUseCase) InferImage(ctx context.Context, payload payloads.ImageInferencePayload) error {
	if uc.resolver == nil {
		return nil
	}
	start := time.Now()

	imageURL, err := uc.resolver.ResolveImageURL(ctx, payload.PageURL)
	if err != nil {
		uc.recordInference("error")
		return fmt.Errorf("usecase: поиск картинки для подарка %s: %w", payload.GiftID, err)
	}
	if imageURL == "" {
		uc.recordInference("not_found")
		uc.logger.Info("no image found on product page", "gift_id", payload.GiftID, "page_url", payload.PageURL)
		return nil
	}

	updated, err := uc.gifts.SetInferredImageURL(ctx, payload.GiftID, imageURL)
	if err != nil {
		uc.recordInference("error")
		return fmt.Errorf("usecase: сохранение картинки для подарка %s: %w", payload.GiftID, err)
	}
	if !updated {
		uc.recordInference("skipped")
		return nil
	}

	uc.recordInference("found")
	uc.logger.Info("gift image inferred",
		"gift_id", payload.GiftID,
		"image_url", imageURL,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// scheduleInference публикует задачу в очередь. Если очередь недоступна,
// задача выполняется сразу, ошибка только логируется.
func (uc *giftUseCase) scheduleInference(ctx context.Context, payload payloads.ImageInferencePayload) {
	if uc.publisher != nil {
		err := uc.publisher.PublishImageInference(ctx, payload)
		if err == nil {
			return
		}
		uc.logger.Warn("failed to publish image inference job, running inline",
			"gift_id", payload.GiftID,
			"error", err,
		)
	}
	if err := uc.InferImage(ctx, payload); err != nil {
		uc.logger.Warn("inline image inference failed", "gift_id", payload.GiftID, "error", err)
	}
}

func (uc *giftUseCase) ownedGift(ctx context.Context, giftID, actorID uuid.UUID) (*domain.Gift, error) {
	gift, err := uc.gifts.GetGiftByID(ctx, giftID)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении подарка %s: %w", giftID, err)
	}
	if err := policy.AssertOwner(*gift, actorID); err != nil {
		uc.logger.Warn("gift mutation denied", "gift_id", giftID, "actor_id", actorID)
		return nil, err
	}
	return gift, nil
}

func (uc *giftUseCase) recordInference(result string) {
	if uc.recorder != nil {
		uc.recorder.RecordImageInference(result)
	}
}

func needsImageInference(g *domain.Gift) bool {
	return g.URL != nil && *g.URL != "" && (g.ImageURL == nil || *g.ImageURL == "")
}
