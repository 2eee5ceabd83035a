package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Session-Cookie (gorilla/sessions)
	SessionSecret string `envconfig:"SESSION_SECRET" required:"true"`
	SessionSecure bool   `envconfig:"SESSION_SECURE" default:"false"`

	// Listing-Cache: "memory" oder "redis"
	CacheDriver   string        `envconfig:"CACHE_DRIVER" default:"memory"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	CachePrefix   string        `envconfig:"CACHE_PREFIX" default:"report-desk:"`
	CacheMaxItems int           `envconfig:"CACHE_MAX_ITEMS" default:"10000"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`

	// Bildablage: "local" oder "s3"
	ImageStore    string `envconfig:"IMAGE_STORE" default:"local"`
	ImageLocalDir string `envconfig:"IMAGE_LOCAL_DIR" default:"storage/app/private"`
	ImageMaxKB    int64  `envconfig:"IMAGE_MAX_KB" default:"5120"`
	ImageMaxFiles int    `envconfig:"IMAGE_MAX_FILES" default:"10"`

	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`

	// Cron für die Status-Gauge
	StatsCron string `envconfig:"STATS_CRON" default:"*/5 * * * *"`

	// Optionaler Start-Administrator, wird beim Booten angelegt falls nicht vorhanden
	BootstrapAdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Validate prüft Kombinationen, die envconfig allein nicht abdecken kann.
func (c *Config) Validate() error {
	switch c.CacheDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}
	switch c.ImageStore {
	case "local":
	case "s3":
		if c.S3URL == "" || c.S3Bucket == "" || c.S3Key == "" || c.S3Secret == "" {
			return fmt.Errorf("IMAGE_STORE=s3 requires S3_URL, S3_BUCKET, S3_KEY and S3_SECRET")
		}
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.Validate()
}
