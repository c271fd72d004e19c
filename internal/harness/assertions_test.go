package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/store"
	"github.com/roach88/irdl/internal/testutil"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Index: 0, Kind: "mesh.mesh", Form: "text", OK: true},
		{Index: 1, Kind: "mesh.all_gather", Form: "text", OK: true},
		{Index: 2, Kind: "mesh.all_slice", Form: "flat", Stage: "verify", Code: "E308"},
		{Index: 3, Kind: "mesh.all_gather", Form: "slots", Stage: "construct", Code: "E403"},
	}
}

// ============================================================================
// trace_contains
// ============================================================================

func TestAssertTraceContains(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		ok        bool
	}{
		{name: "kind present", assertion: Assertion{Kind: "mesh.mesh"}, ok: true},
		{name: "kind absent", assertion: Assertion{Kind: "mesh.broadcast"}},
		{name: "stage and code", assertion: Assertion{Kind: "mesh.all_slice", Stage: "verify", Code: "E308"}, ok: true},
		{name: "wrong code", assertion: Assertion{Kind: "mesh.all_slice", Code: "E309"}},
		{name: "second occurrence", assertion: Assertion{Kind: "mesh.all_gather", Stage: "construct"}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(sampleTrace(), tt.assertion)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertTraceContains, ae.Type)
			assert.Equal(t, "not found in trace", ae.Actual)
		})
	}
}

// ============================================================================
// trace_order
// ============================================================================

func TestAssertTraceOrder_Correct(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{Kinds: []string{"mesh.mesh", "mesh.all_slice"}})
	assert.NoError(t, err, "intervening operations are allowed")
}

func TestAssertTraceOrder_WrongOrder(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{Kinds: []string{"mesh.all_slice", "mesh.all_gather"}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "mesh.all_slice (pos 3) should be before mesh.all_gather (pos 2)", ae.Actual)
}

func TestAssertTraceOrder_MissingKind(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{Kinds: []string{"mesh.mesh", "mesh.shift"}})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "missing kind: mesh.shift", ae.Actual)
}

// ============================================================================
// trace_count
// ============================================================================

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Kind: "mesh.all_gather", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Kind: "mesh.all_gather", Code: "E403", Count: 1}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Kind: "mesh.shift", Count: 0}))

	err := assertTraceCount(sampleTrace(), Assertion{Kind: "mesh.mesh", Count: 2})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "2 occurrences of mesh.mesh", ae.Expected)
	assert.Equal(t, "1 occurrences", ae.Actual)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of mesh.mesh",
		Actual:   "1 occurrences",
		Trace:    sampleTrace()[1:3],
	}
	assert.Equal(t, "Assertion failed: trace_count\n"+
		"  Expected: 2 occurrences of mesh.mesh\n"+
		"  Actual: 1 occurrences\n"+
		"\nFull trace:\n"+
		"  [1] mesh.all_gather ok\n"+
		"  [2] mesh.all_slice verify E308\n", err.Error())
}

// ============================================================================
// final_state
// ============================================================================

func recordedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDs("t")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.RecordRun(context.Background(), "collectives", []string{"mesh"}, []store.Result{
		{Index: 0, OpName: "mesh.mesh", Form: "text"},
		{Index: 1, OpName: "mesh.all_slice", Form: "flat", Stage: "verify", Code: "E308", Message: "missing"},
		{Index: 2, OpName: "mesh.all_slice", Form: "text"},
	})
	require.NoError(t, err)
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := recordedStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assertion Assertion
		actual    string
	}{
		{
			name: "row matches",
			assertion: Assertion{Table: "results", Where: map[string]interface{}{"op_index": 1},
				Expect: map[string]interface{}{"code": "E308", "stage": "verify"}},
		},
		{
			name: "run counters",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "t-0001"},
				Expect: map[string]interface{}{"passed": 2, "failed": 1, "module": "collectives"}},
		},
		{
			name: "row not found",
			assertion: Assertion{Table: "results", Where: map[string]interface{}{"op_index": 9},
				Expect: map[string]interface{}{"code": ""}},
			actual: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{Table: "results", Where: map[string]interface{}{"op_name": "mesh.all_slice"},
				Expect: map[string]interface{}{"code": ""}},
			actual: "multiple rows matched (assertion is ambiguous)",
		},
		{
			name: "value mismatch",
			assertion: Assertion{Table: "results", Where: map[string]interface{}{"op_index": 1},
				Expect: map[string]interface{}{"code": "E309"}},
			actual: `field "code" = E308 (type string)`,
		},
		{
			name: "missing column",
			assertion: Assertion{Table: "runs", Where: map[string]interface{}{"id": "t-0001"},
				Expect: map[string]interface{}{"flavor": "x"}},
			actual: `field "flavor" not present`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.actual == "" {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Actual, tt.actual)
		})
	}
}

func TestAssertFinalState_InvalidTableName(t *testing.T) {
	st := recordedStore(t)
	err := assertFinalState(context.Background(), st, Assertion{Table: "sqlite_master", Expect: map[string]interface{}{"x": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)

	sql, args, err = buildWhereClause(map[string]interface{}{"stage": "verify", "op_index": 3})
	require.NoError(t, err)
	assert.Equal(t, "op_index = ? AND stage = ?", sql, "keys are sorted")
	assert.Equal(t, []interface{}{3, "verify"}, args)

	_, _, err = buildWhereClause(map[string]interface{}{"code; DROP TABLE runs": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "a=1 AND b=x", formatWhereClause(map[string]interface{}{"b": "x", "a": 1}))
}

func TestToSQLValue(t *testing.T) {
	assert.Equal(t, "x", toSQLValue("x"))
	assert.Equal(t, 3, toSQLValue(3))
	assert.Equal(t, true, toSQLValue(true))
	assert.Equal(t, "1.5", toSQLValue(1.5))
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected interface{}
		actual   interface{}
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"nil expected", nil, "x", false},
		{"strings", "E308", "E308", true},
		{"bytes", "E308", []byte("E308"), true},
		{"int vs int64", 5, int64(5), true},
		{"int mismatch", 5, int64(6), false},
		{"int64", int64(2), int64(2), true},
		{"bool vs int64", true, int64(1), true},
		{"bool false", false, int64(0), true},
		{"string vs int", "5", int64(5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

// ============================================================================
// EvaluateAssertions
// ============================================================================

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Kind: "mesh.mesh"},
		{Type: AssertTraceCount, Kind: "mesh.mesh", Count: 3},
		{Type: "trace_maybe"},
		{Type: AssertFinalState, Table: "runs", Expect: map[string]interface{}{"passed": 1}},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "3 occurrences of mesh.mesh")
	assert.Equal(t, `assertion[2]: unknown assertion type "trace_maybe"`, errs[1])
	assert.Equal(t, "assertion[3]: final_state requires database context", errs[2])
}
