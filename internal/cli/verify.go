package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/irdl/internal/module"
	"github.com/roach88/irdl/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Dialects []string // dialect directories
	DBPath   string   // optional history database
}

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Module   string         `json:"module"`
	Dialects []string       `json:"dialects"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	RunID    string         `json:"run_id,omitempty"`
	Seq      int64          `json:"seq,omitempty"`
	Results  []store.Result `json:"results"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <module.yaml>",
		Short: "Build and verify the operations of a module",
		Long: `Build every operation of an IR module file against the given
dialects and verify it. The module is printed back with failures marked.

With --db, the outcome is appended to a SQLite history database that the
history command reads.

Exit codes:
  0 - All operations verified
  1 - One or more operations failed, or a dialect is invalid
  2 - Command error (missing files, unreadable module, database error)

Examples:
  irdl verify module.yaml --dialect ./dialects/mesh
  irdl verify module.yaml --dialect ./dialects/mesh --db history.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Dialects, "dialect", "d", nil, "dialect directory (repeatable)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this SQLite database")
	_ = cmd.MarkFlagRequired("dialect")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadDialects(opts.Dialects, LoadModeFailFast, formatter.Logger())
	if len(errs) > 0 {
		return formatter.fail(exitCodeFor(errs), errs[0].Code, errs[0].Error())
	}

	f, err := module.Load(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeModule, err.Error())
	}
	formatter.VerboseLog("Loaded module %s with %d op(s)", f.Name, len(f.Ops))

	rep, err := module.Run(loaded.Registry, f)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeModule, err.Error())
	}

	results := store.ResultsFromReport(rep)
	result := VerifyResult{
		Module:   rep.Module,
		Dialects: loaded.Names(),
		Failed:   rep.Failed(),
		Results:  results,
	}
	result.Passed = len(results) - result.Failed

	if opts.DBPath != "" {
		run, err := recordRun(cmd, opts.DBPath, rep.Module, result.Dialects, results)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		result.RunID = run.ID
		result.Seq = run.Seq
		for i := range result.Results {
			result.Results[i].RunID = run.ID
		}
		formatter.VerboseLog("Recorded run %s (seq %d) in %s", run.ID, run.Seq, opts.DBPath)
	}

	if formatter.JSON() {
		if result.Failed > 0 {
			if err := formatter.Failure(ErrCodeOpFailed, failedMessage(result), result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		if err := module.Render(formatter.Writer, loaded.Registry, rep); err != nil {
			return err
		}
		fmt.Fprintln(formatter.Writer)
		if result.Failed > 0 {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", failedMessage(result))
		} else {
			fmt.Fprintf(formatter.Writer, "✓ %d operation(s) verified\n", result.Passed)
		}
		if result.RunID != "" {
			fmt.Fprintf(formatter.Writer, "Recorded run %s\n", result.RunID)
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, failedMessage(result))
	}
	return nil
}

func failedMessage(r VerifyResult) string {
	return fmt.Sprintf("%d of %d operation(s) failed", r.Failed, r.Passed+r.Failed)
}

// recordRun appends a run to the history database at path.
func recordRun(cmd *cobra.Command, path, moduleName string, dialects []string, results []store.Result) (store.Run, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()
	return st.RecordRun(cmd.Context(), moduleName, dialects, results)
}
