package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	ServerPort     string        `env:"SERVER_PORT"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"json"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	SeedOnStart    bool          `env:"SEED_ON_START"`

	// Сессии
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE"`

	// Загрузка изображений
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"2097152"`

	// Настройки для MinIO
	MinioEndpoint        string `env:"MINIO_ENDPOINT"`
	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
	MinioUseSSL          bool   `env:"MINIO_USE_SSL"`
	MinioBucketName      string `env:"MINIO_BUCKET_NAME" envDefault:"gift-images"`
	MinioRegion          string `env:"MINIO_REGION" envDefault:"us-east-1"`

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"gift_image_queue"`
	}

	RateLimit struct {
		Backend string        `env:"RATELIMIT_BACKEND" envDefault:"memory"`
		Auth    int           `env:"RATELIMIT_AUTH" envDefault:"5"`
		Window  time.Duration `env:"RATELIMIT_WINDOW" envDefault:"60s"`
		// RedisAddr нужен только для backend=redis
		RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	}
}

// MinioEnabled сообщает, заданы ли учетные данные объектного хранилища.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKeyID != "" && c.MinioSecretAccessKey != ""
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	switch cfg.RateLimit.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown RATELIMIT_BACKEND %q (use memory or redis)", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Auth <= 0 {
		return nil, fmt.Errorf("RATELIMIT_AUTH must be positive, got %d", cfg.RateLimit.Auth)
	}

	return &cfg, nil
}
