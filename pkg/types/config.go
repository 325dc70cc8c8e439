package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Supported sink backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendJSONL    = "jsonl"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("sink backend must not be empty")
	ErrBackendUnknown = errors.New("unknown sink backend")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Name     string `mapstructure:"name" yaml:"name" validate:"required"`
	User     string `mapstructure:"user" yaml:"user" validate:"required"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
}

// FeedConfig controls where the feed comes from and when it is refreshed.
type FeedConfig struct {
	URL     string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Dir     string        `mapstructure:"dir" yaml:"dir" validate:"required"`
	MaxAge  time.Duration `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
	Retries int           `mapstructure:"retries" yaml:"retries" validate:"min=0,max=10"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// SinkConfig selects the table sink.
type SinkConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// TablesConfig names the output tables.
type TablesConfig struct {
	LineStops   string `mapstructure:"line_stops" yaml:"line_stops" validate:"required,sqlident"`
	StopDetails string `mapstructure:"stop_details" yaml:"stop_details" validate:"required,sqlident,nefield=LineStops"`
}

// CacheConfig controls result cache keying.
type CacheConfig struct {
	Fingerprint bool `mapstructure:"fingerprint" yaml:"fingerprint"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// Config is the full gtfstables configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Feed     FeedConfig     `mapstructure:"feed" yaml:"feed"`
	Sink     SinkConfig     `mapstructure:"sink" yaml:"sink"`
	Tables   TablesConfig   `mapstructure:"tables" yaml:"tables"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendPostgres: true,
	BackendSQLite:   true,
	BackendJSONL:    true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return IsValidTableName(fl.Field().String())
	})
	return v
}

// Validate checks that the Config is well-formed. Database settings are only
// checked for the postgres backend; the sqlite and jsonl backends need a path.
// Returns ErrBackendEmpty or ErrBackendUnknown for a bad backend, or an error
// wrapping ErrInvalidConfig that lists the failing fields.
func (c Config) Validate() error {
	if c.Sink.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Sink.Backend] {
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Sink.Backend)
	}

	targets := []any{c.Feed, c.Tables, c.Log}
	if c.Sink.Backend == BackendPostgres {
		targets = append(targets, c.Database)
	} else if c.Sink.Path == "" {
		return fmt.Errorf("%w: sink.path is required for the %s backend", ErrInvalidConfig, c.Sink.Backend)
	}

	for _, t := range targets {
		if err := validate.Struct(t); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Redacted returns a copy of the config that is safe to log.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "********"
	}
	return c
}

// IsValidTableName reports whether name is a plain SQL identifier: a letter or
// underscore followed by letters, digits or underscores, at most 63 bytes.
func IsValidTableName(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
