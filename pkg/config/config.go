package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Preview  PreviewConfig
	Webhooks WebhookConfig
	Media    MediaConfig
	Reports  ReportsConfig
	Leads    LeadsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PreviewConfig governs client preview access behaviour.
type PreviewConfig struct {
	BaseURL      string
	GrantTTL     time.Duration
	ExpiryDays   int
	CacheTTL     time.Duration
	CodeLength   int
	CodeAttempts int
}

// WebhookConfig tunes outbound notification delivery.
type WebhookConfig struct {
	Enabled         bool
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	RequestTimeout  time.Duration
	ConfirmDelivery bool
	Workers         int
	QueueSize       int
}

// MediaConfig controls audio version storage and signed streaming URLs.
type MediaConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxFileSize     int64
}

// ReportsConfig controls admin export generation.
type ReportsConfig struct {
	Enabled    bool
	StorageDir string
}

// LeadsConfig gates the public marketing lead endpoint.
type LeadsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Preview = PreviewConfig{
		BaseURL:      v.GetString("PREVIEW_BASE_URL"),
		GrantTTL:     parseDuration(v.GetString("PREVIEW_GRANT_TTL"), 14*24*time.Hour),
		ExpiryDays:   v.GetInt("PREVIEW_EXPIRY_DAYS"),
		CacheTTL:     parseDuration(v.GetString("PREVIEW_CACHE_TTL"), 5*time.Minute),
		CodeLength:   v.GetInt("PREVIEW_CODE_LENGTH"),
		CodeAttempts: v.GetInt("PREVIEW_CODE_ATTEMPTS"),
	}

	cfg.Webhooks = WebhookConfig{
		Enabled:         v.GetBool("ENABLE_WEBHOOKS"),
		MaxAttempts:     v.GetInt("WEBHOOK_MAX_ATTEMPTS"),
		BaseDelay:       parseDuration(v.GetString("WEBHOOK_BASE_DELAY"), time.Second),
		MaxDelay:        parseDuration(v.GetString("WEBHOOK_MAX_DELAY"), 30*time.Second),
		RequestTimeout:  parseDuration(v.GetString("WEBHOOK_REQUEST_TIMEOUT"), 10*time.Second),
		ConfirmDelivery: v.GetBool("WEBHOOK_CONFIRM_DELIVERY"),
		Workers:         v.GetInt("WEBHOOK_WORKERS"),
		QueueSize:       v.GetInt("WEBHOOK_QUEUE_SIZE"),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 50 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:      v.GetString("MEDIA_STORAGE_DIR"),
		SignedURLSecret: v.GetString("MEDIA_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("MEDIA_SIGNED_URL_TTL"), time.Hour),
		MaxFileSize:     maxMediaSize,
	}

	cfg.Reports = ReportsConfig{
		Enabled:    v.GetBool("ENABLE_REPORTS"),
		StorageDir: v.GetString("REPORTS_STORAGE_DIR"),
	}

	cfg.Leads = LeadsConfig{
		Enabled: v.GetBool("ENABLE_LEADS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "harmonia")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PREVIEW_BASE_URL", "")
	v.SetDefault("PREVIEW_GRANT_TTL", "336h")
	v.SetDefault("PREVIEW_EXPIRY_DAYS", 30)
	v.SetDefault("PREVIEW_CACHE_TTL", "5m")
	v.SetDefault("PREVIEW_CODE_LENGTH", 5)
	v.SetDefault("PREVIEW_CODE_ATTEMPTS", 5)

	v.SetDefault("ENABLE_WEBHOOKS", true)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 3)
	v.SetDefault("WEBHOOK_BASE_DELAY", "1s")
	v.SetDefault("WEBHOOK_MAX_DELAY", "30s")
	v.SetDefault("WEBHOOK_REQUEST_TIMEOUT", "10s")
	v.SetDefault("WEBHOOK_CONFIRM_DELIVERY", true)
	v.SetDefault("WEBHOOK_WORKERS", 2)
	v.SetDefault("WEBHOOK_QUEUE_SIZE", 64)

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("MEDIA_SIGNED_URL_TTL", "1h")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 50*1024*1024)

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")

	v.SetDefault("ENABLE_LEADS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
