package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Dispatcher  DispatcherConfig  `mapstructure:"dispatcher"`
	Store       StoreConfig       `mapstructure:"store"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Inbox       InboxConfig       `mapstructure:"inbox"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Bootstrap   BootstrapConfig   `mapstructure:"bootstrap"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the database/sql driver: "pgx" for PostgreSQL or
	// "sqlite" for an embedded database file.
	Driver       string `mapstructure:"driver" validate:"required,oneof=pgx sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

// DispatcherConfig sizes the background task dispatcher.
type DispatcherConfig struct {
	WorkerCount     int           `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize       int           `mapstructure:"queue_size" validate:"gte=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// StoreConfig tunes read retries.
type StoreConfig struct {
	ReadRetries   uint64        `mapstructure:"read_retries" validate:"lte=10"`
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gt=0"`
}

// AuthConfig contains credential hashing and session token settings.
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	// JWTSecret signs session tokens. When empty a random secret is generated
	// at startup, so sessions do not survive a restart.
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// InboxConfig controls the unread-count cache.
type InboxConfig struct {
	UnreadCacheTTL time.Duration `mapstructure:"unread_cache_ttl" validate:"gt=0"`
}

// DiagnosticsConfig controls the health and metrics listener. An empty
// address disables it.
type DiagnosticsConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}

// BootstrapConfig optionally names the first admin account, registered at
// startup when no user with that username exists yet.
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username" validate:"required_with=AdminPassword"`
	AdminEmail    string `mapstructure:"admin_email" validate:"required_with=AdminUsername,omitempty,email"`
	AdminPassword string `mapstructure:"admin_password" validate:"required_with=AdminUsername"`
}

// Enabled reports whether a bootstrap admin is configured.
func (c BootstrapConfig) Enabled() bool {
	return c.AdminUsername != ""
}
