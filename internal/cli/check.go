package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckResult holds dialect check results.
type CheckResult struct {
	Valid    bool             `json:"valid"`
	Dialects []DialectSummary `json:"dialects,omitempty"`
	Errors   []DialectError   `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <dialect-dir>...",
		Short: "Validate dialect definitions",
		Long: `Load each CUE dialect directory, validate its declarations, and
build every operation schema.

All directories are checked and every problem is reported; dialects are
registered into one registry, so a kind defined twice is an error.

Exit codes:
  0 - All dialects valid
  1 - One or more dialects invalid
  2 - Command error (directory not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, dirs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, errs := LoadDialects(dirs, LoadModeCollectAll, formatter.Logger())
	result := CheckResult{Valid: len(errs) == 0, Dialects: loaded.Dialects, Errors: errs}

	for _, d := range loaded.Dialects {
		formatter.VerboseLog("Checked %s (%s): %d ops", d.Name, d.Dir, len(d.Ops))
	}

	if len(errs) > 0 {
		msg := fmt.Sprintf("validation failed with %d error(s)", len(errs))
		if formatter.JSON() {
			if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
				return err
			}
		} else {
			w := formatter.Writer
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		}
		return NewExitError(exitCodeFor(errs), msg)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for _, d := range loaded.Dialects {
		fmt.Fprintf(formatter.Writer, "✓ %s (%d ops)\n", d.Name, len(d.Ops))
	}
	fmt.Fprintln(formatter.Writer, "✓ All dialects valid")
	return nil
}
