package harness

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario directory holds no
// scenario files.
type ScenarioNotFoundError struct {
	Dir string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("no scenario files (*.yaml, *.yml) found under %s", e.Dir)
}

// DiscoverScenarios returns the scenario files under dir, recursively,
// in lexical order.
func DiscoverScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, &ScenarioNotFoundError{Dir: dir}
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteResult summarizes a run over several scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Results        []ScenarioOutcome `json:"results"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioOutcome is the result of one scenario in a suite.
type ScenarioOutcome struct {
	Name         string  `json:"name"`
	ScenarioPath string  `json:"scenario_path"`
	Result       *Result `json:"result,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Name         string `json:"name,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunSuite loads and runs each scenario file in order. A file that cannot
// be loaded or executed counts as a failure; the suite keeps going.
func RunSuite(ctx context.Context, paths []string) *SuiteResult {
	res := &SuiteResult{}

	for _, path := range paths {
		res.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, ScenarioFailure{
				ScenarioPath: path,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		result, err := RunContext(ctx, scenario)
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, ScenarioFailure{
				Name:         scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("failed to run scenario: %v", err),
			})
			continue
		}
		res.Results = append(res.Results, ScenarioOutcome{Name: scenario.Name, ScenarioPath: path, Result: result})

		if result.Pass {
			res.Passed++
		} else {
			res.Failed++
			res.Failures = append(res.Failures, ScenarioFailure{
				Name:         scenario.Name,
				ScenarioPath: path,
				Error:        strings.Join(result.Errors, "; "),
			})
		}
	}

	return res
}

// OK reports whether every scenario passed.
func (r *SuiteResult) OK() bool { return r.Failed == 0 }
