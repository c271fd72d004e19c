package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/module"
	"github.com/roach88/irdl/internal/testutil"
)

// createTestStore creates a file-backed store with deterministic run IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================================
// Open and configuration
// ============================================================================

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.RecordRun(context.Background(), "m", nil, nil)
	assert.NoError(t, err)
}

func TestClose_NilDB(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestUUIDv7Generator(t *testing.T) {
	id, err := uuid.Parse(UUIDv7Generator{}.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

// ============================================================================
// Recording and reading runs
// ============================================================================

func sampleResults() []Result {
	return []Result{
		{Index: 0, OpName: "arith.addi", Form: "text", Fingerprint: "fp-add"},
		{Index: 1, OpName: "arith.muli", Form: "slots", Fingerprint: "fp-mul",
			Stage: "verify", Code: "E311", Message: "trait failed"},
		{Index: 2, OpName: "arith.sum", Form: "text", Stage: "parse", Message: "undefined value %z"},
	}
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run, err := s.RecordRun(ctx, "arithmetic", []string{"arith"}, sampleResults())
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID: "run-0001", Seq: 1, Module: "arithmetic", Dialects: []string{"arith"}, Passed: 1, Failed: 2,
	}, run)

	got, err := s.Run(ctx, "run-0001")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	results, err := s.Results(ctx, run.ID)
	require.NoError(t, err)
	want := sampleResults()
	for i := range want {
		want[i].RunID = run.ID
	}
	assert.Equal(t, want, results)
}

func TestRecordRun_SequenceAndListing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.RecordRun(ctx, name, nil, nil)
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{runs[0].Seq, runs[1].Seq, runs[2].Seq}, "newest first")
	assert.Equal(t, []string{}, runs[0].Dialects)

	limited, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "c", limited[0].Module)
}

func TestRecordRun_DuplicateIndexRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.RecordRun(ctx, "dup", nil, []Result{
		{Index: 0, OpName: "a.b", Form: "flat"},
		{Index: 0, OpName: "a.c", Form: "flat"},
	})
	require.Error(t, err)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "a failed insert leaves no partial run")
}

func TestRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestResults_Empty(t *testing.T) {
	s := createTestStore(t)
	results, err := s.Results(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, []Result{}, results)
}

func TestHistoryAndFailures(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.RecordRun(ctx, "first", nil, sampleResults())
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, "second", nil, []Result{
		{Index: 0, OpName: "arith.muli", Form: "text", Fingerprint: "fp-mul"},
	})
	require.NoError(t, err)

	hist, err := s.History(ctx, "fp-mul")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "run-0001", hist[0].RunID)
	assert.False(t, hist[0].OK())
	assert.Equal(t, "run-0002", hist[1].RunID)
	assert.True(t, hist[1].OK())

	fails, err := s.Failures(ctx, "arith.muli")
	require.NoError(t, err)
	require.Len(t, fails, 1)
	assert.Equal(t, "E311", fails[0].Code)
}

// ============================================================================
// Reports
// ============================================================================

func TestResultsFromReport(t *testing.T) {
	reg := testutil.LoadDialects(t, "arith")
	f, err := module.Load(testutil.Testdata("modules", "arith.yaml"))
	require.NoError(t, err)
	rep, err := module.Run(reg, f)
	require.NoError(t, err)

	results := ResultsFromReport(rep)
	require.Len(t, results, len(rep.Outcomes))
	assert.True(t, results[0].OK())
	assert.Equal(t, "arith.constant", results[0].OpName)
	assert.Equal(t, "text", results[0].Form)
	assert.Len(t, results[0].Fingerprint, 64)

	muli := results[6]
	assert.Equal(t, "verify", muli.Stage)
	assert.Equal(t, "E311", muli.Code)
	assert.NotEmpty(t, muli.Message)

	s := createTestStore(t)
	run, err := s.RecordRun(context.Background(), rep.Module, []string{"arith"}, results)
	require.NoError(t, err)
	assert.Equal(t, 5, run.Passed)
	assert.Equal(t, 3, run.Failed)
}

func TestMarshalDialects(t *testing.T) {
	data, err := marshalDialects(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)

	data, err = marshalDialects([]string{"mesh", "a<b>"})
	require.NoError(t, err)
	assert.Equal(t, `["mesh","a<b>"]`, data)

	names, err := unmarshalDialects(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"mesh", "a<b>"}, names)

	_, err = unmarshalDialects("{")
	assert.Error(t, err)
}
