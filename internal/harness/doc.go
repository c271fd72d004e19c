// Package harness provides conformance testing for dialect definitions.
//
// A scenario loads one or more CUE dialects, runs an IR module file
// against them, and checks which operations fail, where, and with which
// error code. Outcomes are also recorded in an in-memory store so that
// assertions can query the recorded history.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	dialects:
//	  - ../dialects/mesh
//	module: ../modules/mesh.yaml
//	expect:
//	  - index: 5
//	    stage: verify
//	    code: E308
//	assertions:
//	  - type: trace_contains
//	    kind: mesh.all_gather
//	  - type: final_state
//	    table: results
//	    where: { op_index: 5 }
//	    expect: { code: E308 }
//
// Paths are relative to the scenario file. Every operation not listed
// under expect must verify.
//
// # Assertion Types
//
//   - trace_contains: an operation of the kind appears, optionally with a given stage and code
//   - trace_order: kinds appear in the given order
//   - trace_count: a kind appears exactly N times
//   - final_state: a row of the runs or results table holds the expected values
//
// # Deterministic Testing
//
// Run IDs come from testutil.SequentialIDs, so traces and stored rows are
// identical across runs and suitable for golden comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/mesh.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
