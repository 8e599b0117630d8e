package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv     string   `envconfig:"APP_ENV" default:"production"`
	Extensions []string `envconfig:"LIBRARY_EXTENSIONS" default:".mp3,.flac,.m4a"`
	// MusicRoot makes exported M3U entries relative to it when set.
	MusicRoot string `envconfig:"LIBRARY_MUSIC_ROOT"`
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := new(Config)
	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, err
	}

	for i, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extensions[i] = ext
	}

	return cfg, nil
}
