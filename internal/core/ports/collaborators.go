package ports

import (
	"context"
	"io"
	"time"
)

// RateLimiter — внешний ограничитель частоты запросов.
// Реализации держат состояние сами (память процесса, Redis), а не в глобальных переменных.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ImageURLResolver ищет картинку товара по адресу его страницы.
// Возвращает пустую строку, если картинку найти не удалось.
type ImageURLResolver interface {
	ResolveImageURL(ctx context.Context, pageURL string) (string, error)
}

// ImageDownloader скачивает изображение по URL.
type ImageDownloader interface {
	Download(ctx context.Context, imageURL string) (io.ReadCloser, string, error)
}

// Clock нужен, чтобы в тестах подменять текущее время.
type Clock func() time.Time

// PasswordHasher скрывает алгоритм хеширования паролей.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare возвращает domain.ErrInvalidCredentials при несовпадении.
	Compare(hash, password string) error
}
