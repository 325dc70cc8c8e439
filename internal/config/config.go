// Package config loads gtfstables configuration from config.yaml, a .env file
// and GTFSTABLES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// FileName is the config file looked up in the config directory.
	FileName = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. GTFSTABLES_DATABASE_PASSWORD.
	EnvPrefix = "GTFSTABLES"

	// DefaultFeedURL is the Israel Ministry of Transport GTFS archive.
	DefaultFeedURL = "https://gtfs.mot.gov.il/gtfsfiles/israel-public-transportation.zip"
)

// DotEnvFile is loaded from the working directory before the environment is
// read. Variables already set in the environment win.
var DotEnvFile = ".env"

const defaultHeader = `# gtfstables configuration
# Values may be overridden by GTFSTABLES_* environment variables
# (for example GTFSTABLES_DATABASE_PASSWORD) or a .env file.

`

// Default returns the configuration used when no file or environment
// override is present. dataDir holds the feed and file-based sink output.
func Default(dataDir string) types.Config {
	return types.Config{
		Database: types.DatabaseConfig{
			Name: "gtfs",
			User: "postgres",
			Host: "localhost",
			Port: 5432,
		},
		Feed: types.FeedConfig{
			URL:     DefaultFeedURL,
			Dir:     filepath.Join(dataDir, "feed"),
			Retries: 2,
			Timeout: 5 * time.Minute,
		},
		Sink: types.SinkConfig{
			Backend: types.BackendSQLite,
			Path:    filepath.Join(dataDir, "gtfs.db"),
		},
		Tables: types.TablesConfig{
			LineStops:   types.LineStopsTable,
			StopDetails: types.StopDetailsTable,
		},
		Log: types.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)

	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.dir", d.Feed.Dir)
	v.SetDefault("feed.max_age", d.Feed.MaxAge)
	v.SetDefault("feed.retries", d.Feed.Retries)
	v.SetDefault("feed.timeout", d.Feed.Timeout)

	v.SetDefault("sink.backend", d.Sink.Backend)
	v.SetDefault("sink.path", d.Sink.Path)

	v.SetDefault("tables.line_stops", d.Tables.LineStops)
	v.SetDefault("tables.stop_details", d.Tables.StopDetails)

	v.SetDefault("cache.fingerprint", d.Cache.Fingerprint)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads config.yaml from configDir, layered over Default(dataDir) and
// under environment overrides, and validates the result. A missing
// config.yaml or .env is not an error.
func Load(configDir, dataDir string) (types.Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v, Default(dataDir))
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// WriteDefault writes cfg to configDir/config.yaml unless the file exists.
// created reports whether a file was written.
func WriteDefault(configDir string, cfg types.Config) (path string, created bool, err error) {
	path = filepath.Join(configDir, FileName)

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return path, false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return path, false, fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return path, false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o600); err != nil {
		return path, false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}
