package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/irdl/internal/testutil"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(testutil.Testdata("scenarios"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		testutil.Testdata("scenarios", "arith.yaml"),
		testutil.Testdata("scenarios", "mesh.yaml"),
	}, paths)
}

func TestDiscoverScenarios_Empty(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "notes.txt", "not a scenario")

	_, err := DiscoverScenarios(dir)
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, dir, nf.Dir)
}

func TestDiscoverScenarios_MissingDir(t *testing.T) {
	_, err := DiscoverScenarios(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestRunSuite_Testdata(t *testing.T) {
	paths, err := DiscoverScenarios(testutil.Testdata("scenarios"))
	require.NoError(t, err)

	res := RunSuite(context.Background(), paths)
	assert.True(t, res.OK(), "failures: %v", res.Failures)
	assert.Equal(t, 2, res.TotalScenarios)
	assert.Equal(t, 2, res.Passed)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "arith_types", res.Results[0].Name)
	assert.Equal(t, "mesh_collectives", res.Results[1].Name)
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	broken := writeScenario(t, dir, "broken.yaml", "name: broken\n")
	failing := writeScenario(t, dir, "failing.yaml", `
name: failing
description: "expects nothing to fail"
dialects: [`+testutil.Testdata("dialects", "arith")+`]
module: `+testutil.Testdata("modules", "arith.yaml")+`
`)

	res := RunSuite(context.Background(), []string{broken, failing, testutil.Testdata("scenarios", "mesh.yaml")})
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.TotalScenarios)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Failures, 2)

	assert.Equal(t, broken, res.Failures[0].ScenarioPath)
	assert.Contains(t, res.Failures[0].Error, "failed to load scenario")

	assert.Equal(t, "failing", res.Failures[1].Name)
	assert.Contains(t, res.Failures[1].Error, "ops[5] (arith.addi): unexpected verify failure")
}
