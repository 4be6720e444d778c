package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/withdef/internal/config"
	"github.com/roach88/withdef/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is the loaded config file, or the defaults. Set before any
	// subcommand runs.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the withdef CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:           "withdef",
		Short:         "withdef - definition-aware views",
		Long:          "Resolve code definitions from a local index and render them the way a def-wrapped view would.",
		Version:       ir.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			setupLogging(cmd.ErrOrStderr(), opts.Verbose)

			if opts.ConfigPath != "" {
				cfg, err := config.Load(opts.ConfigPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.Config = cfg
				slog.Debug("config loaded", "path", opts.ConfigPath, "db", cfg.DB)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewFetchesCommand(opts))

	return cmd
}

// dbPath returns the --db flag value, or the configured database.
func (o *RootOptions) dbPath(flag string) string {
	if flag != "" {
		return flag
	}
	return o.Config.DB
}

// timeout returns the --timeout flag value, or the configured timeout.
func (o *RootOptions) timeout(flag time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return o.Config.Timeout
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// setupLogging points the default slog logger at w. Commands log at warn
// and above unless --verbose is set.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
