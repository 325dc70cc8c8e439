package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gtfstables/internal/acquire"
	"github.com/mesh-intelligence/gtfstables/internal/config"
	"github.com/mesh-intelligence/gtfstables/internal/logging"
	"github.com/mesh-intelligence/gtfstables/internal/paths"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// app is the state shared by the commands that need configuration.
type app struct {
	configDir string
	dataDir   string
	cfg       types.Config
	logger    *slog.Logger
}

// resolveDirs returns the config and data directories from flags, env or
// platform defaults.
func resolveDirs() (configDir, dataDir string, err error) {
	configDir, err = paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve config dir: %w", err)
	}
	dataDir, err = paths.ResolveDataDir(flags.dataDir)
	if err != nil {
		return "", "", fmt.Errorf("resolve data dir: %w", err)
	}
	return configDir, dataDir, nil
}

// loadApp resolves directories, loads and validates configuration and builds
// the logger. Logs go to the command's stderr.
func loadApp(cmd *cobra.Command) (*app, error) {
	configDir, dataDir, err := resolveDirs()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configDir, dataDir)
	if err != nil {
		return nil, asUserError(fmt.Errorf("load config: %w", err))
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, asUserError(err)
	}
	logger.Debug("config loaded", "config_dir", configDir, "config", cfg.Redacted())

	return &app{configDir: configDir, dataDir: dataDir, cfg: cfg, logger: logger}, nil
}

// fetcher builds the feed fetcher, drawing progress on stderr unless JSON
// output was requested.
func (a *app) fetcher(cmd *cobra.Command) *acquire.Fetcher {
	var opts []acquire.Option
	if !flags.jsonMode {
		opts = append(opts, acquire.WithProgress(cmd.ErrOrStderr()))
	}
	return acquire.NewFetcher(a.cfg.Feed, a.logger, opts...)
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
