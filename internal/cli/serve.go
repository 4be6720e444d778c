package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/withdef/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
	Timeout  time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve def views over HTTP",
		Long: `Start an HTTP server that renders def-wrapped views from the index.

Routes:
  GET    /defs/{repo}@{rev}/-/def/{path}   settled view as JSON
  GET    /highlight                        current highlighted def spec
  PUT    /highlight                        set it: {"spec": "..."}
  DELETE /highlight                        clear it
  GET    /healthz                          database health

Examples:
  withdef serve --db withdef.db --addr 127.0.0.1:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-request wait for a def (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	addr := opts.Addr
	if addr == "" {
		addr = opts.Config.Addr
	}

	stack, err := openFetchStack(opts.dbPath(opts.Database), true)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack.start(ctx)
	defer stack.close()

	if opts.Config.Highlight != "" {
		stack.store.SetHighlighted(opts.Config.Highlight)
	}

	srv := httpapi.New(stack.store, stack.dispatcher,
		httpapi.WithTimeout(opts.timeout(opts.Timeout)),
		httpapi.WithHealthCheck(stack.db.Ping),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving defs on http://%s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
