package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"poster-server/pkg/secrets"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// Database (PostgreSQL)
	DBHost    string `envconfig:"DB_HOST" required:"true"`
	DBPort    string `envconfig:"DB_PORT" required:"true"`
	DBUser    string `envconfig:"DB_USER" required:"true"`
	DBName    string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode string `envconfig:"DB_SSL_MODE" default:"disable"`
	// Secret field WITHOUT an envconfig tag, loaded from a secret file.
	DBPassword string

	// Redis render cache; empty addr disables caching.
	RedisAddr string `envconfig:"REDIS_ADDR" default:""`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Secret field WITHOUT an envconfig tag.
	RedisPassword string

	// RabbitMQ update consumer; empty URL disables it.
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" default:""`
	UpdateQueueName string `envconfig:"UPDATE_QUEUE_NAME" default:"design_updates"`

	// JWT - secret field WITHOUT an envconfig tag.
	JWTSecret string

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Rendering
	RenderMaxBodyBytes  int64         `envconfig:"RENDER_MAX_BODY_BYTES" default:"51200"`
	RenderDefaultWidth  int           `envconfig:"RENDER_DEFAULT_WIDTH" default:"832"`
	RenderDefaultHeight int           `envconfig:"RENDER_DEFAULT_HEIGHT" default:"1152"`
	RenderCacheTTL      time.Duration `envconfig:"RENDER_CACHE_TTL" default:"15m"`
	AssetTimeout        time.Duration `envconfig:"ASSET_TIMEOUT" default:"10s"`
	AssetMaxBytes       int64         `envconfig:"ASSET_MAX_BYTES" default:"33554432"`

	// Live updates / autosave
	KeepAliveInterval time.Duration `envconfig:"SSE_KEEPALIVE_INTERVAL" default:"30s"`
	AutosaveWindow    time.Duration `envconfig:"AUTOSAVE_WINDOW" default:"500ms"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// DatabaseDSN assembles the pgx connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Required secrets; the env fallback keeps local runs without Docker
	// secrets working.
	var loadErr error
	cfg.DBPassword, loadErr = secrets.ReadWithEnvFallback("db_password", "DB_PASSWORD")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.JWTSecret, loadErr = secrets.ReadWithEnvFallback("jwt_secret", "JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	// Optional secret; an absent file just means no Redis password.
	if redisPass, err := secrets.Read("redis_password"); err == nil {
		cfg.RedisPassword = redisPass
	}

	return &cfg, nil
}
