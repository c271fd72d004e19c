package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/irdl/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every scenario file under a directory. Each scenario names its
dialects and module, lists the operations expected to fail, and asserts
on the trace and the recorded history.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  irdl test ./scenarios
  irdl test ./scenarios --filter "mesh*"
  irdl test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid filter %q: %v", opts.Filter, err))
		}
	}

	paths, err := harness.DiscoverScenarios(scenariosDir)
	var notFound *harness.ScenarioNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	paths = filterScenarios(paths, opts.Filter)

	result := TestResult{Scenarios: []ScenarioResult{}, Total: len(paths)}
	if len(paths) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	suite := harness.RunSuite(cmd.Context(), paths)
	result.Passed = suite.Passed
	result.Failed = suite.Failed
	for _, o := range suite.Results {
		formatter.VerboseLog("Ran %s (%s)", o.Name, o.ScenarioPath)
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   o.Name,
			Path:   o.ScenarioPath,
			Pass:   o.Result.Pass,
			RunID:  o.Result.RunID,
			Errors: o.Result.Errors,
		})
	}
	// Scenarios that could not be loaded or run have no result.
	for _, f := range suite.Failures {
		if !hasScenario(result.Scenarios, f.ScenarioPath) {
			result.Scenarios = append(result.Scenarios, ScenarioResult{
				Name:   f.Name,
				Path:   f.ScenarioPath,
				Errors: []string{f.Error},
			})
		}
	}

	if formatter.JSON() {
		if result.Failed > 0 {
			if err := formatter.Failure(ErrCodeScenario, testSummary(result), result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, testSummary(result))
	}
	return nil
}

func filterScenarios(paths []string, pattern string) []string {
	if pattern == "" {
		return paths
	}
	var out []string
	for _, p := range paths {
		if ok, _ := filepath.Match(pattern, filepath.Base(p)); ok {
			out = append(out, p)
		}
	}
	return out
}

func hasScenario(list []ScenarioResult, path string) bool {
	for _, s := range list {
		if s.Path == path {
			return true
		}
	}
	return false
}

func testSummary(r TestResult) string {
	return fmt.Sprintf("%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
}

func writeTestText(formatter *OutputFormatter, r TestResult) {
	w := formatter.Writer
	for _, s := range r.Scenarios {
		name := s.Name
		if name == "" {
			name = s.Path
		}
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, testSummary(r))
}
