package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Feed     FeedConfig
	Titles   TitlesConfig
	Redis    RedisConfig
	Render   RenderConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	BaseURL         string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type FeedConfig struct {
	CacheTTL          time.Duration `envconfig:"FEED_CACHE_TTL" default:"5m"`
	SweepInterval     time.Duration `envconfig:"FEED_CACHE_SWEEP_INTERVAL" default:"1m"`
	UpstreamTimeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	UpstreamBaseURL   string        `envconfig:"UPSTREAM_BASE_URL" default:"https://www.youtube.com"`
	UpstreamUserAgent string        `envconfig:"UPSTREAM_USER_AGENT" default:"Mozilla/5.0 (compatible; tubefeed/1.0)"`
}

type TitlesConfig struct {
	Enabled     bool   `envconfig:"DEARROW_ENABLED" default:"false"`
	BaseURL     string `envconfig:"DEARROW_BASE_URL" default:"https://sponsor.ajay.app"`
	Concurrency int    `envconfig:"DEARROW_CONCURRENCY" default:"4"`
}

type RedisConfig struct {
	Enabled   bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host      string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int           `envconfig:"REDIS_PORT" default:"6379"`
	Password  string        `envconfig:"REDIS_PASSWORD" default:""`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	HandleTTL time.Duration `envconfig:"REDIS_HANDLE_TTL" default:"24h"`
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type RenderConfig struct {
	Enabled           bool          `envconfig:"RENDER_ENABLED" default:"false"`
	DownloadURLExpiry time.Duration `envconfig:"RENDER_DOWNLOAD_URL_EXPIRY" default:"15m"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	Prefetch        int           `envconfig:"WORKER_PREFETCH" default:"4"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"tubefeed"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"tubefeed"`
	DBName   string `envconfig:"POSTGRES_DB" default:"tubefeed"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string `envconfig:"MINIO_PUBLIC_ENDPOINT" default:""`
	AccessKey      string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"MINIO_BUCKET" default:"feeds"`
	UseSSL         bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"tubefeed"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"tubefeed"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// SlogLevel parses Level. Unknown values are an error.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return lvl, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Feed.CacheTTL < 0 {
		return nil, fmt.Errorf("failed to load config: FEED_CACHE_TTL must not be negative")
	}
	if !strings.HasSuffix(cfg.Server.BaseURL, "/") {
		cfg.Server.BaseURL += "/"
	}
	return &cfg, nil
}
