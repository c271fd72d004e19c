package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue/token"

	"github.com/roach88/irdl/internal/asmformat"
	"github.com/roach88/irdl/internal/compiler"
	"github.com/roach88/irdl/internal/opdef"
)

// LoadMode controls how errors are handled during dialect loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error code constants shared by CLI commands. Load codes match
// compiler.LoadError; the rest are CLI-only.
const (
	ErrCodeGeneric     = compiler.ErrCodeGeneric
	ErrCodeNotFound    = compiler.ErrCodeNotFound
	ErrCodeModule      = "E007" // Module file unreadable or invalid
	ErrCodeStore       = "E008" // History database error
	ErrCodeOpFailed    = "E009" // One or more operations failed
	ErrCodeScenario    = "E010" // One or more scenarios failed
	ErrCodeUnknownKind = "E011" // describe: kind not registered
)

// DialectError is one problem found while loading a dialect directory.
type DialectError struct {
	Dir     string `json:"dir"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (e DialectError) Error() string {
	loc := e.Dir
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Dir, e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: [%s] %s: %s", loc, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", loc, e.Code, e.Message)
}

// DialectSummary describes a dialect that loaded and registered cleanly.
type DialectSummary struct {
	Name string   `json:"name"`
	Dir  string   `json:"dir"`
	Ops  []string `json:"ops"`
}

// LoadResult contains the dialects loaded into one registry.
type LoadResult struct {
	Registry *opdef.Registry
	Dialects []DialectSummary
}

// Names returns the loaded dialect names in load order.
func (r *LoadResult) Names() []string {
	names := make([]string, len(r.Dialects))
	for i, d := range r.Dialects {
		names[i] = d.Name
	}
	return names
}

// LoadDialects loads, validates, and registers each dialect directory into a
// fresh registry. In fail-fast mode it returns at the first failing
// directory; otherwise every directory is tried and every problem reported.
func LoadDialects(dirs []string, mode LoadMode, logger *slog.Logger) (*LoadResult, []DialectError) {
	result := &LoadResult{
		Registry: opdef.NewRegistry(
			opdef.WithLogger(logger),
			opdef.WithFormatCompiler(asmformat.Compiler{}),
		),
	}

	var errs []DialectError
	for _, dir := range dirs {
		summary, dirErrs := loadDialect(result.Registry, dir)
		if len(dirErrs) > 0 {
			errs = append(errs, dirErrs...)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		logger.Debug("dialect loaded", "dialect", summary.Name, "dir", dir, "ops", len(summary.Ops))
		result.Dialects = append(result.Dialects, summary)
	}
	return result, errs
}

func loadDialect(reg *opdef.Registry, dir string) (DialectSummary, []DialectError) {
	spec, err := compiler.LoadDir(dir)
	if err != nil {
		return DialectSummary{}, []DialectError{convertLoadError(dir, err)}
	}

	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		out := make([]DialectError, len(verrs))
		for i, v := range verrs {
			out[i] = DialectError{Dir: dir, Code: v.Code, Field: v.Field, Message: v.Message, Line: v.Line}
		}
		return DialectSummary{}, out
	}

	d, err := compiler.Resolve(spec)
	if err != nil {
		return DialectSummary{}, []DialectError{convertLoadError(dir, err)}
	}
	if err := d.Register(reg); err != nil {
		return DialectSummary{}, []DialectError{convertLoadError(dir, err)}
	}

	summary := DialectSummary{Name: d.Name, Dir: dir}
	for _, decl := range d.Decls {
		summary.Ops = append(summary.Ops, decl.Name)
	}
	return summary, nil
}

// convertLoadError converts a compiler or registry error to a DialectError
// with code and position info.
func convertLoadError(dir string, err error) DialectError {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return DialectError{Dir: dir, Code: loadErr.Code, Message: loadErr.Message, Line: lineOf(loadErr.Pos)}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return DialectError{Dir: dir, Code: ErrCodeGeneric, Field: compileErr.Field, Message: compileErr.Message, Line: lineOf(compileErr.Pos)}
	}
	var defErr *opdef.DefinitionError
	if errors.As(err, &defErr) {
		field := defErr.Kind
		if defErr.Field != "" {
			field += "." + defErr.Field
		}
		return DialectError{Dir: dir, Code: defErr.Code, Field: field, Message: defErr.Message}
	}
	return DialectError{Dir: dir, Code: ErrCodeGeneric, Message: err.Error()}
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// exitCodeFor maps dialect errors to an exit code: a missing directory is
// a command error, anything else a verification failure.
func exitCodeFor(errs []DialectError) int {
	for _, e := range errs {
		if e.Code == ErrCodeNotFound {
			return ExitCommandError
		}
	}
	return ExitFailure
}
