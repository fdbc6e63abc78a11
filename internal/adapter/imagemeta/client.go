// Package imagemeta находит картинку товара по мета-тегам страницы
// и скачивает изображения по URL.
package imagemeta

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoArmGo/GiftList/internal/domain"
	"golang.org/x/net/html"
)

const (
	userAgent = "GiftListBot/1.0 (+https://example.com)"
	// страницу читаем не целиком: мета-теги находятся в <head>
	maxPageBytes = 1 << 20
)

// candidateKeys — значения атрибутов property/name, в которых сайты указывают картинку.
var candidateKeys = map[string]bool{
	"og:image":            true,
	"og:image:url":        true,
	"og:image:secure_url": true,
	"twitter:image":       true,
	"twitter:image:src":   true,
	"twitter:image:url":   true,
	"itemprop:image":      true,
}

// Client реализует ports.ImageURLResolver и ports.ImageDownloader.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	logger     *slog.Logger
}

func NewClient(maxImageBytes int64, logger *slog.Logger) *Client {
	if maxImageBytes <= 0 {
		maxImageBytes = domain.MaxImageBytes
	}
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxBytes:   maxImageBytes,
		logger:     logger,
	}
}

// ResolveImageURL загружает страницу и ищет в ней мета-тег с картинкой.
// Относительный адрес разрешается от итогового URL ответа (после редиректов).
// Если страница не HTML или тега нет, возвращается пустая строка без ошибки.
func (c *Client) ResolveImageURL(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", nil
	}
	start := time.Now()

	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("product page returned non-success status", "page_url", pageURL, "status", resp.StatusCode)
		return "", nil
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html") {
		return "", nil
	}

	raw := findImageMeta(io.LimitReader(resp.Body, maxPageBytes))
	if raw == "" {
		return "", nil
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", nil
	}
	resolved := resp.Request.URL.ResolveReference(ref).String()

	c.logger.Debug("image meta resolved",
		"page_url", pageURL,
		"image_url", resolved,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resolved, nil
}

// Download скачивает изображение, проверяя MIME-тип и размер.
// Тело читается в память целиком, поэтому размер ограничен maxBytes.
func (c *Client) Download(ctx context.Context, imageURL string) (io.ReadCloser, string, error) {
	resp, err := c.get(ctx, imageURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("image server returned status %d: %w", resp.StatusCode, domain.ErrValidation)
	}

	contentType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := domain.ImageExtension(contentType); !ok {
		return nil, "", fmt.Errorf("unsupported image type %q: %w", contentType, domain.ErrValidation)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, "", fmt.Errorf("image file is too large: %w", domain.ErrValidation)
	}
	if sniffed := http.DetectContentType(data); sniffed != contentType {
		return nil, "", fmt.Errorf("image body is %q, header says %q: %w", sniffed, contentType, domain.ErrValidation)
	}

	return io.NopCloser(bytes.NewReader(data)), contentType, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("url %q must be http or https: %w", rawURL, domain.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP-запроса: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения HTTP-запроса к %s: %w", u.Host, err)
	}
	return resp, nil
}

// findImageMeta возвращает content первого подходящего тега <meta>.
func findImageMeta(r io.Reader) string {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			if content := imageContent(z); content != "" {
				return content
			}
		}
	}
}

func imageContent(z *html.Tokenizer) string {
	var key, itemprop, content string
	for {
		k, v, more := z.TagAttr()
		switch strings.ToLower(string(k)) {
		case "property":
			key = string(v)
		case "name":
			if key == "" {
				key = string(v)
			}
		case "itemprop":
			itemprop = string(v)
		case "content":
			content = strings.TrimSpace(string(v))
		}
		if !more {
			break
		}
	}
	if content == "" {
		return ""
	}
	if candidateKeys[strings.ToLower(key)] || strings.EqualFold(itemprop, "image") {
		return content
	}
	return ""
}
