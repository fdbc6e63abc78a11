package domain

import "strings"

// MaxImageBytes — предельный размер изображения по умолчанию.
const MaxImageBytes = 2 * 1024 * 1024

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// ImageExtension возвращает расширение файла для разрешенного MIME-типа.
// Параметры типа ("; charset=...") отбрасываются.
func ImageExtension(contentType string) (string, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(mediaType))]
	return ext, ok
}
