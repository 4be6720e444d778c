package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/withdef/internal/defdb"
)

// FetchesOptions holds flags for the fetches command.
type FetchesOptions struct {
	*RootOptions
	Database string
	Limit    int
	Outcome  string
}

// FetchesResult is the fetch log, oldest first.
type FetchesResult struct {
	Fetches []defdb.Fetch  `json:"fetches"`
	Counts  map[string]int `json:"counts"`
}

// RenderText implements TextRenderer.
func (r FetchesResult) RenderText(w io.Writer) {
	if len(r.Fetches) == 0 {
		fmt.Fprintln(w, "No fetches recorded.")
		return
	}
	for _, f := range r.Fetches {
		fmt.Fprintf(w, "[%d] %-9s %s  %s\n", f.Seq, f.Outcome, f.Key, truncateID(f.RequestID))
	}
	fmt.Fprintf(w, "\n%d fetch(es):", len(r.Fetches))
	for _, o := range []string{defdb.OutcomeFound, defdb.OutcomeNotFound, defdb.OutcomeError, defdb.OutcomeSkipped} {
		if n := r.Counts[o]; n > 0 {
			fmt.Fprintf(w, " %s=%d", o, n)
		}
	}
	fmt.Fprintln(w)
}

// NewFetchesCommand creates the fetches command.
func NewFetchesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetches",
		Short: "Show the fetch log",
		Long: `Show how the index backend answered fetch requests: one row per
request, with its outcome (found, not_found, error, skipped).

Examples:
  withdef fetches --db withdef.db
  withdef fetches --limit 20 --outcome not_found --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetches(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N fetches")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "show only fetches with this outcome")

	return cmd
}

func runFetches(opts *FetchesOptions, cmd *cobra.Command) error {
	db, err := openExistingDB(opts.dbPath(opts.Database))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fetches, err := db.ReadFetches(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read fetch log", err)
	}

	result := FetchesResult{Fetches: []defdb.Fetch{}, Counts: map[string]int{}}
	for _, f := range fetches {
		if opts.Outcome != "" && f.Outcome != opts.Outcome {
			continue
		}
		result.Fetches = append(result.Fetches, f)
		result.Counts[f.Outcome]++
	}

	return opts.formatter(cmd).Success(result)
}

// truncateID shortens long request IDs for text output.
func truncateID(id string) string {
	if len(id) <= 13 {
		return id
	}
	return id[:13] + "..."
}
