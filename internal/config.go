package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/galaxytab/internal/kv"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app" toml:"app"`
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Scripts     ScriptsConfig     `yaml:"scripts" toml:"scripts"`
	Environment EnvironmentConfig `yaml:"environment" toml:"environment"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Scripts.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
	// ThemeThrottle is the minimum gap between theme.updated events.
	ThemeThrottle time.Duration `yaml:"theme_throttle" toml:"theme_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ThemeThrottle, validation.Min(time.Duration(0))),
	)
}

// StorageConfig selects where settings and links are persisted.
//
// Driver is one of:
//   - "fs" (default): one JSON file per key under Path, a directory.
//   - "sqlite3": SQLite database file at Path via the cgo driver.
//   - "sqlite": the same through the pure-Go driver.
//
// PollInterval is how often the SQLite drivers check for writes made by
// other processes; the fs driver is notified by the filesystem.
type StorageConfig struct {
	Driver       string        `yaml:"driver" toml:"driver"`
	Path         string        `yaml:"path" toml:"path"`
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = kv.DriverFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(kv.DriverFS, kv.DriverCGO, kv.DriverPureGo)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.PollInterval, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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

// ScriptsConfig controls execution of the advanced.customJS setting. Scripts
// are off unless the operator turns them on, and then run sandboxed with no
// host access for at most Timeout.
type ScriptsConfig struct {
	Enabled bool          `yaml:"enabled" toml:"enabled"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// Validate validates the scripts configuration.
func (c *ScriptsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond), validation.Max(time.Minute)),
	)
}

// EnvironmentConfig describes the presentation environment.
type EnvironmentConfig struct {
	// PrefersDark resolves the "auto" theme.
	PrefersDark bool `yaml:"prefers_dark" toml:"prefers_dark"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:          8080,
				ThemeThrottle: 500 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Driver:       kv.DriverFS,
			Path:         "./data",
			PollInterval: 500 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Scripts: ScriptsConfig{
			Enabled: false,
			Timeout: 2 * time.Second,
		},
		Environment: EnvironmentConfig{
			PrefersDark: true,
		},
	}
}
