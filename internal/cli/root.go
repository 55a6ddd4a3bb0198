// Package cli implements the edgemetrics command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/edgemetrics/internal/app"
	"github.com/mesh-intelligence/edgemetrics/internal/logging"
	"github.com/mesh-intelligence/edgemetrics/internal/metrics"
	"github.com/mesh-intelligence/edgemetrics/internal/paths"
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
	jsonMode  bool
}

// state is shared by the commands of one root command instance.
type state struct {
	flags     rootFlags
	configDir string
	settings  settings
	logger    *slog.Logger
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by bad input (exit 1).
func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// sysError marks err as an environment or storage failure (exit 2).
func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// NewRootCmd creates the top-level "edgemetrics" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	st := &state{logger: logging.Discard()}

	root := &cobra.Command{
		Use:   "edgemetrics",
		Short: "Local storage and backups for the EdgeMetrics trading journal",
		Long: "edgemetrics manages the journal's local item store: obfuscated session\n" +
			"data, plain preferences, and a rolling set of timestamped backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return st.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&st.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&st.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&st.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(st))
	root.AddCommand(newGetCmd(st))
	root.AddCommand(newSetCmd(st))
	root.AddCommand(newDeleteCmd(st))
	root.AddCommand(newKeysCmd(st))
	root.AddCommand(newSecureCmd(st))
	root.AddCommand(newMigrateCmd(st))
	root.AddCommand(newSessionsCmd(st))
	root.AddCommand(newBackupCmd(st))
	root.AddCommand(newServeCmd(st))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

// load resolves the config directory, reads config.yaml and builds the logger.
func (st *state) load(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(st.flags.configDir)
	if err != nil {
		return sysError("resolve config directory: %w", err)
	}
	// init records an explicit --data-dir in the config it creates.
	var seedDataDir string
	if cmd.Name() == "init" {
		seedDataDir = st.flags.dataDir
	}
	s, err := loadSettings(configDir, seedDataDir)
	if err != nil {
		return sysError("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:  s.LogLevel,
		Format: s.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return userError("configure logging: %w", err)
	}
	st.configDir = configDir
	st.settings = s
	st.logger = logger
	return nil
}

// dataDir resolves the data directory: flag, then config.yaml, then
// EDGEMETRICS_DATA_DIR, then $(CWD)/.edgemetrics-db.
func (st *state) dataDir() (string, error) {
	return paths.ResolveDataDir(st.flags.dataDir, st.settings.DataDir)
}

// open attaches the store described by the loaded settings.
func (st *state) open(ctx context.Context, bm metrics.BusinessMetrics) (*app.App, error) {
	dataDir, err := st.dataDir()
	if err != nil {
		return nil, sysError("resolve data directory: %w", err)
	}
	a, err := app.Open(ctx, app.Options{
		Store:   st.settings.storeConfig(dataDir),
		Backup:  st.settings.Backup,
		Logger:  st.logger,
		Metrics: bm,
	})
	if err != nil {
		return nil, sysError("open store: %w", err)
	}
	return a, nil
}

// withApp opens the store, runs fn, and closes the store.
func (st *state) withApp(cmd *cobra.Command, fn func(*app.App) error) (err error) {
	a, err := st.open(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = sysError("close store: %w", cerr)
		}
	}()
	return fn(a)
}
