package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/withdef/internal/catalog"
	"github.com/roach88/withdef/internal/defdb"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	DryRun   bool
}

// ImportResult summarises an import.
type ImportResult struct {
	Database string   `json:"database,omitempty"`
	Files    int      `json:"files"`
	Defs     int      `json:"defs"`
	Failed   int      `json:"failed"`
	Repos    []string `json:"repos"`
	DryRun   bool     `json:"dry_run,omitempty"`
}

// RenderText implements TextRenderer.
func (r ImportResult) RenderText(w io.Writer) {
	verb := "Imported"
	if r.DryRun {
		verb = "Validated"
	}
	fmt.Fprintf(w, "✓ %s %d def(s) from %d file(s)\n", verb, r.Defs, r.Files)
	if r.Failed > 0 {
		fmt.Fprintf(w, "  %d def(s) carry a fetch error\n", r.Failed)
	}
	for _, repo := range r.Repos {
		fmt.Fprintf(w, "  - %s\n", repo)
	}
	if r.Database != "" {
		fmt.Fprintf(w, "Database: %s\n", r.Database)
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <catalog-dir>",
		Short: "Load a CUE definition catalog into the index",
		Long: `Compile every .cue file in a catalog directory and upsert the
definitions into the SQLite index. All entries are checked before anything
is written; one invalid entry aborts the whole import.

Exit codes:
  0 - Catalog imported
  1 - Catalog has invalid entries
  2 - Command error (directory missing, database unwritable)

Examples:
  withdef import ./catalog --db withdef.db
  withdef import ./catalog --dry-run --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate the catalog without writing")

	return cmd
}

func runImport(opts *ImportOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result, loadErrs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if result == nil && len(loadErrs) > 0 {
		code, msg := catalog.ErrCodeGeneric, loadErrs[0].Error()
		var le *catalog.LoadError
		if errors.As(loadErrs[0], &le) {
			code, msg = le.Code, le.Message
		}
		_ = formatter.Error(code, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if len(loadErrs) > 0 {
		details := make([]string, len(loadErrs))
		for i, err := range loadErrs {
			details[i] = err.Error()
		}
		if formatter.Format == "json" {
			_ = formatter.Error(catalog.ErrCodeInvalidDef, fmt.Sprintf("%d invalid catalog entr(ies)", len(loadErrs)), details)
		} else {
			w := formatter.Writer
			fmt.Fprintf(w, "✗ %d invalid catalog entr(ies)\n", len(loadErrs))
			for _, d := range details {
				fmt.Fprintf(w, "  %s\n", d)
			}
		}
		return NewExitError(ExitFailure, "catalog has invalid entries")
	}

	formatter.VerboseLog("Compiled %d def(s) from %d CUE file(s) in %s", len(result.Defs), result.FileCount, dir)

	summary := ImportResult{
		Files:  result.FileCount,
		Defs:   len(result.Defs),
		Repos:  []string{},
		DryRun: opts.DryRun,
	}
	seen := make(map[string]bool)
	for _, d := range result.Defs {
		if d.Failed() {
			summary.Failed++
		}
		if !seen[d.Key.Repo] {
			seen[d.Key.Repo] = true
			summary.Repos = append(summary.Repos, d.Key.Repo)
		}
	}

	if opts.DryRun {
		return formatter.Success(summary)
	}

	path := opts.dbPath(opts.Database)
	db, err := defdb.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := db.WriteDefs(ctx, result.Defs); err != nil {
		return WrapExitError(ExitCommandError, "failed to write defs", err)
	}

	summary.Database = path
	return formatter.Success(summary)
}
