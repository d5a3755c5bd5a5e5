package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursehub-backend/internal/data/db"
	"github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/jobs"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/envutil"
	"github.com/yungbote/coursehub-backend/internal/platform/gcp"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursehub-backend/internal/services"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultJWTSecret = "defaultsecret"
)

type Config struct {
	Port    string
	LogMode string

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	Auth           services.AuthConfig
	AllowedOrigins []string

	RedisAddr       string
	CatalogCacheTTL time.Duration

	Media     gcp.MediaConfig
	SendGrid  sendgrid.Config
	PublicURL string

	Otel observability.OtelConfig

	TokenPurgeSchedule string
	ReenrollPolicy     services.ReenrollPolicy
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE. Durations are seconds.
type fileConfig struct {
	Port               string   `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AccessTokenTTL     int      `yaml:"access_token_ttl"`
	RefreshTokenTTL    int      `yaml:"refresh_token_ttl"`
	PasswordResetTTL   int      `yaml:"password_reset_ttl"`
	CatalogCacheTTL    int      `yaml:"catalog_cache_ttl"`
	ReenrollPolicy     string   `yaml:"reenroll_policy"`
	TokenPurgeSchedule string   `yaml:"token_purge_schedule"`
}

// LoadConfig reads .env (if present), then the YAML overlay, then the process
// environment. Later sources win.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		log.Debug("no .env file; using process environment")
	}

	fc, err := loadFileConfig(envutil.String("CONFIG_FILE", ""))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     envutil.String("PORT", orString(fc.Port, "8080")),
		LogMode:  envutil.String("LOG_MODE", "development"),
		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", DBDriverPostgres)),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "coursehub"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "coursehub.db"),
		Auth: services.AuthConfig{
			JWTSecretKey: envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
			AccessTTL:    envutil.Seconds("ACCESS_TOKEN_TTL", orSeconds(fc.AccessTokenTTL, time.Hour)),
			RefreshTTL:   envutil.Seconds("REFRESH_TOKEN_TTL", orSeconds(fc.RefreshTokenTTL, 24*time.Hour)),
			ResetTTL:     envutil.Seconds("PASSWORD_RESET_TTL", orSeconds(fc.PasswordResetTTL, time.Hour)),
			BcryptCost:   envutil.Int("BCRYPT_COST", bcrypt.DefaultCost),
		},
		AllowedOrigins:  envutil.List("CORS_ALLOWED_ORIGINS", orList(fc.CORSAllowedOrigins, middleware.DefaultAllowedOrigins)),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		CatalogCacheTTL: envutil.Seconds("CATALOG_CACHE_TTL", orSeconds(fc.CatalogCacheTTL, 30*time.Second)),
		Media: gcp.MediaConfig{
			VideoBucket:    envutil.String("VIDEO_GCS_BUCKET_NAME", ""),
			DocumentBucket: envutil.String("DOCUMENT_GCS_BUCKET_NAME", ""),
			CDNDomain:      envutil.String("MEDIA_CDN_DOMAIN", ""),
		},
		SendGrid: sendgrid.Config{
			APIKey:           envutil.String("SENDGRID_API_KEY", ""),
			DefaultFromEmail: envutil.String("SENDGRID_FROM_EMAIL", "no-reply@coursehub.local"),
			DefaultFromName:  envutil.String("SENDGRID_FROM_NAME", "CourseHub"),
		},
		PublicURL: envutil.String("APP_PUBLIC_URL", "http://localhost:5173"),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursehub-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},
		TokenPurgeSchedule: envutil.String("TOKEN_PURGE_SCHEDULE", orString(fc.TokenPurgeSchedule, jobs.DefaultPurgeSchedule)),
	}

	switch cfg.DBDriver {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DBDriverPostgres, DBDriverSQLite, cfg.DBDriver)
	}

	mode, host, err := gcp.ResolveStorageMode(
		envutil.String(gcp.StorageModeEnv, ""),
		envutil.String(gcp.StorageEmulatorHostEnv, ""),
	)
	if err != nil {
		return Config{}, fmt.Errorf("media storage: %w", err)
	}
	cfg.Media.Mode = mode
	cfg.Media.EmulatorHost = host

	policy, err := services.ParseReenrollPolicy(envutil.String("REENROLL_POLICY", fc.ReenrollPolicy))
	if err != nil {
		return Config{}, err
	}
	cfg.ReenrollPolicy = policy

	if cfg.Auth.JWTSecretKey == defaultJWTSecret {
		if cfg.LogMode == "production" {
			return Config{}, errors.New("JWT_SECRET_KEY must be set in production")
		}
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return fc, nil
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func orSeconds(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Second
}

func orList(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
