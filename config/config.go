package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"gamedoc/pkg/logger"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost           string `envconfig:"DB_HOST" default:"localhost"`
	DBPort           string `envconfig:"DB_PORT" default:"5432"`
	DBUser           string `envconfig:"DB_USER" default:"postgres"`
	DBPassword       string `envconfig:"DB_PASSWORD"`
	DBName           string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode        string `envconfig:"DB_SSL_MODE" default:"require"`
	DBMaxConns       int    `envconfig:"DB_MAX_CONNS" default:"10"`
	DBConnectRetries int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`

	// Supabase signs access tokens with this HMAC secret.
	JWTSecret  string `envconfig:"JWT_SECRET" required:"true"`
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`

	InvitationTTL time.Duration `envconfig:"INVITATION_TTL" default:"168h"`
	SaveInterval  time.Duration `envconfig:"SAVE_INTERVAL" default:"10s"`

	// Image uploads are disabled when S3Bucket is empty.
	S3Region     string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint   string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey  string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string        `envconfig:"S3_SECRET_KEY"`
	S3Bucket     string        `envconfig:"S3_BUCKET"`
	UploadURLTTL time.Duration `envconfig:"UPLOAD_URL_TTL" default:"15m"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// DSN returns the postgres connection URL.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
