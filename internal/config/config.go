package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ImageStoreLocal = "local"
	ImageStoreMinIO = "minio"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	EnableDB    bool   `mapstructure:"ENABLE_DB"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModels     []string      `mapstructure:"GEMINI_MODELS"`
	ModelTimeout     time.Duration `mapstructure:"MODEL_TIMEOUT"`
	ProbeTimeout     time.Duration `mapstructure:"PROBE_TIMEOUT"`
	GoogleMapsAPIKey string        `mapstructure:"GOOGLE_MAPS_API_KEY"`

	ImageStore      string `mapstructure:"IMAGE_STORE"`
	UploadDir       string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL   string `mapstructure:"PUBLIC_BASE_URL"`
	MinIOEndpoint   string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey  string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey  string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket     string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL     bool   `mapstructure:"MINIO_USE_SSL"`
	MinIOPublicBase string `mapstructure:"MINIO_PUBLIC_BASE"`

	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	MaxUploadBytes  int64    `mapstructure:"MAX_UPLOAD_BYTES"`
	UploadRateRPS   float64  `mapstructure:"UPLOAD_RATE_RPS"`
	UploadRateBurst int      `mapstructure:"UPLOAD_RATE_BURST"`
}

var keys = []string{
	"PORT", "ENV", "GIN_MODE", "LOG_LEVEL",
	"ENABLE_DB", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"GEMINI_API_KEY", "GEMINI_MODELS", "MODEL_TIMEOUT", "PROBE_TIMEOUT", "GOOGLE_MAPS_API_KEY",
	"IMAGE_STORE", "UPLOAD_DIR", "PUBLIC_BASE_URL",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL", "MINIO_PUBLIC_BASE",
	"CORS_ORIGINS", "MAX_UPLOAD_BYTES", "UPLOAD_RATE_RPS", "UPLOAD_RATE_BURST",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENABLE_DB", false)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("GEMINI_MODELS", "gemini-1.5-flash,gemini-1.5-pro,gemini-pro,gemini-pro-vision")
	v.SetDefault("MODEL_TIMEOUT", "30s")
	v.SetDefault("PROBE_TIMEOUT", "15s")
	v.SetDefault("IMAGE_STORE", ImageStoreLocal)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MINIO_BUCKET", "skin-images")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("UPLOAD_RATE_RPS", 1)
	v.SetDefault("UPLOAD_RATE_BURST", 5)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.GeminiModels = splitList(cfg.GeminiModels)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AIEnabled reports whether a Gemini key is configured at all.
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}

func (c *Config) Validate() error {
	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	switch c.ImageStore {
	case ImageStoreLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required when IMAGE_STORE=local")
		}
	case ImageStoreMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required when IMAGE_STORE=minio")
		}
	default:
		return fmt.Errorf("IMAGE_STORE must be %q or %q, got %q", ImageStoreLocal, ImageStoreMinIO, c.ImageStore)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.UploadRateRPS <= 0 || c.UploadRateBurst <= 0 {
		return fmt.Errorf("UPLOAD_RATE_RPS and UPLOAD_RATE_BURST must be positive")
	}
	return nil
}

// splitList accepts both already-split values and single comma-joined
// strings, trimming blanks.
func splitList(in []string) []string {
	out := []string{}
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
