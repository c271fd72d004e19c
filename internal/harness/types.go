package harness

// TraceEvent records the outcome of one module operation.
type TraceEvent struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Form  string `json:"form"`
	OK    bool   `json:"ok"`
	Stage string `json:"stage,omitempty"`
	Code  string `json:"code,omitempty"`

	// Message is the failure text. Not part of golden snapshots.
	Message string `json:"-"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations and assertions hold.
	Pass bool `json:"pass"`

	// RunID is the ID under which the run was recorded.
	RunID string `json:"run_id"`

	// Passed and Failed count the module's operations by outcome.
	Passed int `json:"passed"`
	Failed int `json:"failed"`

	// Trace contains one event per module operation, in module order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an operation outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
