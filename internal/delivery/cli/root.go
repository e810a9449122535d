// Package cli wires configuration, storage and the scoring pipeline into the
// palmlens command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/palmlens/scorer/config"
	"github.com/palmlens/scorer/internal/domain"
	"github.com/palmlens/scorer/internal/infrastructure/logging"
)

// Build-time variables injected via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError carries the exit code a command failed with
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

const rootLong = `palmlens parses product ingredient declarations, matches them against a
weighted ingredient table and estimates how many grams of the target
ingredient each product contains.`

// NewRootCommand creates the root command with every subcommand attached
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "palmlens",
		Short:         "Estimate palm oil content of retail products from their ingredient lists",
		Long:          rootLong,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file path (default: ./palmlens.yaml)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newScoreCommand(), newParseCommand())
	return cmd
}

// Run executes the command tree with the given arguments and returns the
// process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	PrintError(stderr, err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, domain.ErrMissingRequiredInput) {
		return ExitUsage
	}
	return ExitFailure
}

// PrintError writes a one-line error message
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

// loadConfig loads configuration with the command's flags bound
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: err}
	}
	return cfg, nil
}

// newLogger creates a stderr logger; verbose raises the level to info
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level := cfg.Log.Level
	if cfg.Run.Verbose && logging.ParseLevel(level) > zapcore.InfoLevel {
		level = "info"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{"stderr"},
	})
}
