package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteku/internal/kv"
	"github.com/starford/noteku/internal/repository"
	"github.com/starford/noteku/internal/theme"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	File   FileConfig        `yaml:"file"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Redis  RedisConfig       `yaml:"redis"`
	Auth   AuthConfig        `yaml:"auth"`
	Theme  ThemeConfig       `yaml:"theme"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration. Only the section of the selected
// store backend is checked.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	var backend validation.Validatable
	switch c.Store.Backend {
	case kv.BackendFile:
		backend = &c.File
	case kv.BackendSQLite:
		backend = &c.SQLite
	case kv.BackendRedis:
		backend = &c.Redis
	}
	if err := backend.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.Store.Backend, err)
	}
	if err := c.Theme.Validate(); err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return c.Auth.Validate()
}

// StoreOptions translates the store sections into kv.Open options.
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend:    c.Store.Backend,
		FileDir:    c.File.Dir,
		SQLitePath: c.SQLite.Path,
		Redis: kv.RedisOptions{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Timeout:  c.Redis.Timeout,
		},
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the key-value backend and the key the notes live under.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Key == "" {
		c.Key = repository.DefaultKey
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(kv.BackendFile, kv.BackendSQLite, kv.BackendRedis)),
		validation.Field(&c.Key, validation.Required, validation.By(func(any) error {
			return kv.ValidateKey(c.Key)
		})),
	)
}

// FileConfig holds the directory the file backend writes blobs into.
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the file backend configuration.
func (c *FileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0), validation.Max(15)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ThemeConfig holds the default palette for clients that do not pick one.
type ThemeConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the theme configuration.
func (c *ThemeConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = string(theme.Light)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(string(theme.Light), string(theme.Dark))),
	)
}

// EventsConfig holds live-update settings.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if c.Throttle < 0 {
		return errors.New("throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Backend: kv.BackendFile,
			Key:     repository.DefaultKey,
		},
		File: FileConfig{
			Dir: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./noteku.db",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: 3 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Theme: ThemeConfig{
			Mode: string(theme.Light),
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
