package ports

import (
	"context"
	"io"

	"github.com/GoArmGo/GiftList/internal/domain"
	"github.com/google/uuid"
)

// UserStorage определяет методы для взаимодействия с хранилищем пользователей
type UserStorage interface {
	// CreateUser возвращает domain.ErrEmailTaken, если адрес уже занят (проверяется уникальным индексом).
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUserByUsername ищет самого раннего пользователя, чей email начинается с "username@".
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.User, error)
}

// GiftStorage определяет методы для взаимодействия с хранилищем подарков
type GiftStorage interface {
	CreateGift(ctx context.Context, gift *domain.Gift) error
	GetGiftByID(ctx context.Context, id uuid.UUID) (*domain.Gift, error)
	// UpdateGift меняет только изменяемые поля; owner_id не обновляется.
	UpdateGift(ctx context.Context, gift *domain.Gift) error
	// DeleteGift удаляет подарок, покупка удаляется каскадно.
	DeleteGift(ctx context.Context, id uuid.UUID) error
	ListGiftsByOwner(ctx context.Context, ownerID uuid.UUID, newestFirst bool) ([]domain.Gift, error)
	SetGiftImagePath(ctx context.Context, id uuid.UUID, path string) error
	// SetInferredImageURL записывает image_url, только если он еще не задан.
	SetInferredImageURL(ctx context.Context, id uuid.UUID, imageURL string) (bool, error)
}

// PurchaseStorage — единственная точка записи в таблицу purchases.
type PurchaseStorage interface {
	// WithinTx выполняет fn в одной транзакции; при ошибке fn транзакция откатывается.
	WithinTx(ctx context.Context, fn func(tx PurchaseTx) error) error
	// PurchasesForGifts возвращает покупки, проиндексированные по gift_id.
	PurchasesForGifts(ctx context.Context, giftIDs []uuid.UUID) (map[uuid.UUID]domain.Purchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.PurchaseListing, error)
}

// PurchaseTx — операции, доступные внутри транзакции покупки.
type PurchaseTx interface {
	GetGift(ctx context.Context, id uuid.UUID) (*domain.Gift, error)
	// GetPurchaseByGift возвращает nil, nil если подарок не куплен.
	GetPurchaseByGift(ctx context.Context, giftID uuid.UUID) (*domain.Purchase, error)
	// InsertPurchase возвращает ошибку, оборачивающую domain.ErrConflictRace,
	// если уникальное ограничение на gift_id отклонило вставку, и domain.ErrNotFound,
	// если подарок удален параллельной транзакцией.
	InsertPurchase(ctx context.Context, purchase *domain.Purchase) error
	DeletePurchase(ctx context.Context, id uuid.UUID) error
}

// FileStorage определяет интерфейс для работы с файловым хранилищем (AWS S3, MinIO)
type FileStorage interface {
	// UploadFile загружает файл и возвращает его ключ в хранилище.
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	// GetFile возвращает содержимое и MIME-тип объекта.
	GetFile(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteFile(ctx context.Context, key string) error
}
