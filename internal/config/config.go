package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds the client settings. Every endpoint, auth included, uses
// the single API base URL.
type Config struct {
	APIBaseURL   string        `mapstructure:"API_BASE_URL"`
	DBPath       string        `mapstructure:"DB_PATH"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`
}

// Load reads app.env from path. Environment variables override the
// file; a missing file is fine and leaves the defaults in place.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:3000")
	v.SetDefault("DB_PATH", "laundry.db")
	v.SetDefault("HTTP_TIMEOUT", 15*time.Second)
	v.SetDefault("POLL_INTERVAL", 5*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
