package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/irdl/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath      string
	RunID       string
	Op          string
	Fingerprint string
	Limit       int
}

// RunDetail is the JSON payload for a single run.
type RunDetail struct {
	store.Run
	Results []store.Result `json:"results"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query recorded verification runs",
		Long: `Read the history database written by verify --db.

Without filters, lists the most recent runs. --run shows one run with all
of its results; --op lists the recorded failures of a kind; --fingerprint
lists every result for operations of the same shape.

Examples:
  irdl history --db history.db
  irdl history --db history.db --run 0190...
  irdl history --db history.db --op mesh.all_slice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the history database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run and its results")
	cmd.Flags().StringVar(&opts.Op, "op", "", "list recorded failures of an operation kind")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "list results for an operation fingerprint")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("run", "op", "fingerprint")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open would create a missing database.
	if _, err := os.Stat(opts.DBPath); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DBPath))
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	w := formatter.Writer

	switch {
	case opts.RunID != "":
		run, err := st.Run(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		results, err := st.Results(ctx, run.ID)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(RunDetail{Run: run, Results: results})
		}
		writeRunLine(w, run)
		for _, r := range results {
			writeResultLine(w, r, false)
		}
		return nil

	case opts.Op != "" || opts.Fingerprint != "":
		var results []store.Result
		if opts.Op != "" {
			results, err = st.Failures(ctx, opts.Op)
		} else {
			results, err = st.History(ctx, opts.Fingerprint)
		}
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(w, "No results found.")
			return nil
		}
		for _, r := range results {
			writeResultLine(w, r, true)
		}
		return nil

	default:
		runs, err := st.Runs(ctx, opts.Limit)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		if formatter.JSON() {
			return formatter.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		for _, run := range runs {
			writeRunLine(w, run)
		}
		return nil
	}
}

func writeRunLine(w io.Writer, run store.Run) {
	fmt.Fprintf(w, "#%d %s %s [%s]: %d passed, %d failed\n",
		run.Seq, run.ID, run.Module, strings.Join(run.Dialects, ", "), run.Passed, run.Failed)
}

func writeResultLine(w io.Writer, r store.Result, withRun bool) {
	prefix := "  "
	if withRun {
		prefix = r.RunID + " "
	}
	if r.OK() {
		fmt.Fprintf(w, "%sops[%d] %s (%s): ok\n", prefix, r.Index, r.OpName, r.Form)
		return
	}
	fmt.Fprintf(w, "%sops[%d] %s (%s): %s", prefix, r.Index, r.OpName, r.Form, r.Stage)
	if r.Code != "" {
		fmt.Fprintf(w, " %s", r.Code)
	}
	fmt.Fprintf(w, ": %s\n", r.Message)
}
