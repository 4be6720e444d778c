package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/withdef"
)

// ErrCodeTimeout is the CLI error code for a def that never settled.
const ErrCodeTimeout = "E020"

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Database  string
	Timeout   time.Duration
	Highlight string
}

// ResolveResult is the output of one resolve.
type ResolveResult struct {
	Spec     string        `json:"spec"`
	View     withdef.View  `json:"view"`
	Reported []ir.DefError `json:"reported,omitempty"`
}

// RenderText implements TextRenderer.
func (r ResolveResult) RenderText(w io.Writer) {
	if r.View.Unavailable() {
		fmt.Fprintf(w, "✗ %s\n", r.Spec)
		fmt.Fprintf(w, "  %s %s\n", r.View.Title, r.View.Subtitle)
		for _, e := range r.Reported {
			fmt.Fprintf(w, "  reported: %s\n", e.Message)
		}
		return
	}

	s, ok := r.View.Body.(withdef.Summary)
	if !ok {
		fmt.Fprintf(w, "✓ %s\n  %v\n", r.Spec, r.View.Body)
		return
	}
	fmt.Fprintf(w, "✓ %s %s\n", s.Kind, s.Name)
	if s.File != "" {
		fmt.Fprintf(w, "  %s:%d-%d\n", s.File, s.StartLine, s.EndLine)
	}
	if s.DocHTML != "" {
		fmt.Fprintf(w, "  %s\n", s.DocHTML)
	}
	if s.Highlighted != nil {
		fmt.Fprintf(w, "  highlighted: %s %s\n", s.Highlighted.Kind, s.Highlighted.Name)
	}
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <def-spec>",
		Short: "Resolve one definition and print its view",
		Long: `Mount a def-wrapped view for a def spec, let the fetch layer answer
from the index, and print the settled view.

A def spec looks like repo@rev/-/def/path.

Exit codes:
  0 - Definition rendered
  1 - Definition unavailable, or timed out
  2 - Command error (bad spec, database not found)

Examples:
  withdef resolve "github.com/a/b@main/-/def/GoPackage/github.com/a/b/-/Foo"
  withdef resolve "github.com/a/b@main/-/def/Foo" --highlight "github.com/a/b@main/-/def/Bar"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "how long to wait for the def (default from config)")
	cmd.Flags().StringVar(&opts.Highlight, "highlight", "", "def spec to place in the highlighted slot")

	return cmd
}

func runResolve(opts *ResolveOptions, spec string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	props, ok := withdef.PropsFromSpec(spec)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid def spec %q", spec))
	}

	stack, err := openFetchStack(opts.dbPath(opts.Database), false)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.timeout(opts.Timeout))
	defer cancel()

	stack.start(ctx)
	defer stack.close()

	highlight := opts.Highlight
	if highlight == "" {
		highlight = opts.Config.Highlight
	}
	if highlight != "" {
		formatter.VerboseLog("Highlighting %s", highlight)
		stack.store.SetHighlighted(highlight)
	}

	recorder := &withdef.StatusRecorder{}
	view, err := withdef.Resolve(ctx, stack.store, stack.dispatcher, withdef.SummaryComponent, props,
		withdef.WithStatusReporter(recorder),
	)
	result := ResolveResult{Spec: spec, View: view, Reported: recorder.Errors()}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		_ = formatter.Error(ErrCodeTimeout, fmt.Sprintf("timed out waiting for %s", spec), nil)
		return NewExitError(ExitFailure, "timed out")
	case err != nil:
		return WrapExitError(ExitCommandError, "resolve failed", err)
	case view.Unavailable():
		_ = formatter.Failure(result)
		return NewExitError(ExitFailure, fmt.Sprintf("definition unavailable (%d)", view.Code))
	}

	return formatter.Success(result)
}
