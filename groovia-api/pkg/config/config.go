package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"production"`
	Port   string `envconfig:"PORT" default:"8080"`

	DatabaseURL       string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseName      string `envconfig:"DATABASE_NAME" default:"groovia"`
	MongoTransactions bool   `envconfig:"MONGO_TRANSACTIONS" default:"false"`

	RedisURL      string `envconfig:"REDIS_URL"`
	EventsChannel string `envconfig:"EVENTS_CHANNEL" default:"groovia.events"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	DownloadHeaderTimeout time.Duration `envconfig:"DOWNLOAD_HEADER_TIMEOUT" default:"30s"`
	DownloadRateLimit     float64       `envconfig:"DOWNLOAD_RATE_LIMIT" default:"5"`
	DownloadRateBurst     int           `envconfig:"DOWNLOAD_RATE_BURST" default:"10"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// NewConfig reads an optional .env file and then the process environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
