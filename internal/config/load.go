package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// COURSEWORK_DATABASE_URL overrides database.url.
const EnvPrefix = "COURSEWORK"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:coursework.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("dispatcher.worker_count", 4)
	v.SetDefault("dispatcher.queue_size", 256)
	v.SetDefault("dispatcher.shutdown_timeout", "10s")
	v.SetDefault("store.read_retries", 3)
	v.SetDefault("store.retry_interval", "20ms")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", "60m")
	v.SetDefault("inbox.unread_cache_ttl", "30s")
	v.SetDefault("diagnostics.listen_addr", "")
	v.SetDefault("bootstrap.admin_username", "")
	v.SetDefault("bootstrap.admin_email", "")
	v.SetDefault("bootstrap.admin_password", "")
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory or ./configs.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
