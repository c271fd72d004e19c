package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/compiler"
	"github.com/roach88/irdl/internal/module"
	"github.com/roach88/irdl/internal/opdef"
	"github.com/roach88/irdl/internal/store"
	"github.com/roach88/irdl/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store    *store.Store
	registry *opdef.Registry
	logger   *slog.Logger
	dialects []string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh registry and a fresh in-memory
// database. Run IDs are sequential so results are reproducible.
//
// Execution flow:
// 1. Load and register the scenario's dialects
// 2. Load and run the module
// 3. Record the outcomes in the store
// 4. Check expectations, then evaluate assertions
//
// The returned error is set only when the scenario could not be executed
// at all; conformance failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with an explicit context for store access.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	prefix := scenario.RunIDPrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs(prefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		registry: opdef.NewRegistry(
			opdef.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
			opdef.WithFormatCompiler(asmformat.Compiler{}),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := h.loadDialects(scenario.Dialects); err != nil {
		return nil, err
	}

	f, err := module.Load(scenario.Module)
	if err != nil {
		return nil, err
	}
	rep, err := module.Run(h.registry, f)
	if err != nil {
		return nil, fmt.Errorf("failed to run module: %w", err)
	}

	run, err := st.RecordRun(ctx, rep.Module, h.dialects, store.ResultsFromReport(rep))
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	h.logger.Debug("run recorded", "run_id", run.ID, "passed", run.Passed, "failed", run.Failed)

	result := NewResult()
	result.RunID = run.ID
	result.Passed = run.Passed
	result.Failed = run.Failed
	for _, o := range rep.Outcomes {
		ev := TraceEvent{Index: o.Index, Kind: o.Kind, Form: o.Form, OK: o.OK()}
		if !o.OK() {
			ev.Stage = string(o.Stage)
			ev.Code = o.Code()
			ev.Message = o.Err.Error()
		}
		result.AddTrace(ev)
	}

	for _, msg := range checkExpectations(result.Trace, scenario.Expect) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) loadDialects(dirs []string) error {
	for _, dir := range dirs {
		d, err := compiler.LoadDialect(dir)
		if err != nil {
			return fmt.Errorf("failed to load dialect: %w", err)
		}
		if err := d.Register(h.registry); err != nil {
			return fmt.Errorf("failed to register dialect %s: %w", d.Name, err)
		}
		h.dialects = append(h.dialects, d.Name)
	}
	return nil
}

// checkExpectations compares the trace against the expected failures.
// Operations without an expectation must have verified.
func checkExpectations(trace []TraceEvent, expect []Expectation) []string {
	var errs []string
	byIndex := make(map[int]Expectation, len(expect))
	for _, e := range expect {
		byIndex[e.Index] = e
		if e.Index >= len(trace) {
			errs = append(errs, fmt.Sprintf("expect: module has no operation %d (%d operations)", e.Index, len(trace)))
		}
	}

	for _, ev := range trace {
		e, listed := byIndex[ev.Index]
		switch {
		case !listed && !ev.OK:
			errs = append(errs, fmt.Sprintf("ops[%d] (%s): unexpected %s failure: %s", ev.Index, ev.Kind, ev.Stage, ev.Message))
		case listed && ev.OK:
			errs = append(errs, fmt.Sprintf("ops[%d] (%s): expected failure, but it verified", ev.Index, ev.Kind))
		case listed:
			if e.Stage != "" && e.Stage != ev.Stage {
				errs = append(errs, fmt.Sprintf("ops[%d] (%s): expected stage %s, got %s", ev.Index, ev.Kind, e.Stage, ev.Stage))
			}
			if e.Code != "" && e.Code != ev.Code {
				errs = append(errs, fmt.Sprintf("ops[%d] (%s): expected code %s, got %q", ev.Index, ev.Kind, e.Code, ev.Code))
			}
			if e.Contains != "" && !strings.Contains(ev.Message, e.Contains) {
				errs = append(errs, fmt.Sprintf("ops[%d] (%s): expected message containing %q, got %q", ev.Index, ev.Kind, e.Contains, ev.Message))
			}
		}
	}
	return errs
}
