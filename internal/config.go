package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/fehu/internal/auth"
	"github.com/halvard/fehu/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeSession  = "session"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Storage     StorageConfig     `yaml:"storage"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Audit       AuditConfig       `yaml:"audit"`
	Auth        AuthConfig        `yaml:"auth"`
	Development bool              `yaml:"development"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the JSON document store configuration.
type StorageConfig struct {
	Path    string        `yaml:"path"`
	Backup  BackupConfig  `yaml:"backup"`
	Locking LockingConfig `yaml:"locking"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return err
	}
	return c.Backup.Validate()
}

// Options converts the configuration into storage options.
func (c *StorageConfig) Options() storage.Options {
	return storage.Options{
		Locking:     c.Locking.Enabled,
		LockTimeout: time.Duration(c.Locking.TimeoutSeconds) * time.Second,
		Backup:      c.Backup.Enabled,
		MaxBackups:  c.Backup.MaxBackups,
	}
}

// BackupConfig controls pre-write backup rotation.
type BackupConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxBackups int  `yaml:"max_backups"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBackups, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

// LockingConfig controls the advisory lock-file protocol.
type LockingConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// CatalogConfig holds query-engine defaults.
type CatalogConfig struct {
	DefaultOrder   string `yaml:"default_order"`
	DefaultPerPage int    `yaml:"default_per_page"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultOrder, validation.Required, validation.In("asc", "desc")),
		validation.Field(&c.DefaultPerPage, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// AuditConfig holds the operation-log database path. An empty path
// disables the log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// UserConfig is one credential-table entry.
type UserConfig struct {
	ID       int    `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Validate validates a credential entry.
func (c *UserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required, validation.Min(1)),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.Role, validation.Required, validation.In(auth.RoleAdmin, auth.RoleRegular)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled": no authentication; every request runs as admin (local dev).
//   - "session" (default): username/password login issuing session tokens.
type AuthConfig struct {
	Mode              string       `yaml:"mode"`
	SessionTTLMinutes int          `yaml:"session_ttl_minutes"`
	Users             []UserConfig `yaml:"users"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeSession
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeSession)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeDisabled {
		return nil
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("auth: mode is %q but no users are configured", AuthModeSession)
	}
	for i := range c.Users {
		if err := c.Users[i].Validate(); err != nil {
			return fmt.Errorf("auth: user %d: %w", i, err)
		}
	}
	return nil
}

// Enabled returns true when authentication is active.
func (c *AuthConfig) Enabled() bool {
	return c.Mode != AuthModeDisabled
}

// SessionTTL returns the configured session lifetime.
func (c *AuthConfig) SessionTTL() time.Duration {
	if c.SessionTTLMinutes < 1 {
		return time.Hour
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// CredentialTable converts the configured users into the auth package's
// credential table.
func (c *AuthConfig) CredentialTable() []auth.User {
	users := make([]auth.User, len(c.Users))
	for i, u := range c.Users {
		users[i] = auth.User{ID: u.ID, Username: u.Username, Password: u.Password, Role: u.Role}
	}
	return users
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
		Storage: StorageConfig{
			Path: "./data/products.json",
			Backup: BackupConfig{
				Enabled:    false,
				MaxBackups: 10,
			},
			Locking: LockingConfig{
				Enabled:        true,
				TimeoutSeconds: 30,
			},
		},
		Catalog: CatalogConfig{
			DefaultOrder:   "asc",
			DefaultPerPage: 10,
		},
		Audit: AuditConfig{
			Path: "./data/audit.db",
		},
		Auth: AuthConfig{
			Mode:              AuthModeSession,
			SessionTTLMinutes: 60,
			Users: []UserConfig{
				{ID: 1, Username: "admin", Password: "admin123", Role: auth.RoleAdmin},
				{ID: 2, Username: "user", Password: "user123", Role: auth.RoleRegular},
			},
		},
	}
}
