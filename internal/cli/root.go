// Package cli implements the gtfstables command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gtfstables/internal/acquire"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "gtfstables" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gtfstables",
		Short: "Derive line and stop tables from a GTFS feed",
		Long: "gtfstables downloads a GTFS feed, joins routes, trips, stop times and stops,\n" +
			"and writes the line_stops and stop_details tables to PostgreSQL, SQLite or JSONL.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory for the feed and file outputs (default: platform data dir)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return asUserError(err)
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newDeriveCmd())
	root.AddCommand(newRunCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the command line in args and returns the process exit code.
func run(ctx context.Context, args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

// userError marks failures caused by the invocation or its inputs rather than
// the environment.
type userError struct {
	err error
}

func (e *userError) Error() string { return e.err.Error() }
func (e *userError) Unwrap() error { return e.err }

func asUserError(err error) error {
	if err == nil {
		return nil
	}
	return &userError{err: err}
}

// exitCode maps an error to a process exit code. Bad configuration, bad
// arguments and malformed feed files are user errors; everything else is a
// system error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *userError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, types.ErrInvalidConfig),
		errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrParse),
		errors.Is(err, types.ErrFormat),
		errors.Is(err, acquire.ErrNoURL),
		errors.Is(err, acquire.ErrArchive),
		errors.Is(err, acquire.ErrBadArchive):
		return exitUserError
	}
	return exitSysError
}
