// Package harness runs sanitizer regression scenarios.
//
// A scenario pairs a source document with the outcome a sanitize run must
// produce. Scenarios exercise the same pipeline the CLI uses, with the
// output captured in memory and history kept in an in-memory store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: mock_application
//	description: "Duplicate objects, fields, scenes and views are removed"
//	input: ../../../../testdata/documents/mock_application.json
//	config: rules/objects_only.yaml   # optional
//	run_id: run-mock                  # optional
//	expect:
//	  status: ok                      # ok (default) | failed
//	  stage: load                     # failing stage, with status failed
//	  error: "not an array"           # substring of the run error
//	  removed: 4
//	  objects: [object_1, object_2, object_3]
//	  scenes: [scene_1, scene_2]
//	assertions:
//	  - type: nested_keys
//	    collection: objects
//	    record: object_1
//	    field: fields
//	    keys: [field_1, field_2]
//	  - type: history
//	    expect: { status: ok, removed: 4 }
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - keys: Record keys of a collection of versions[0], in order
//   - nested_keys: Record keys of a nested array inside one record
//   - removed: Records removed from one collection, all levels included
//   - field_equals: A top-level document field has a given value
//   - history: The recorded run row matches expected fields (subset)
//
// # Deterministic Testing
//
// The harness uses:
//   - Fixed run IDs (from scenario.run_id or "test-run-default")
//   - Deterministic wall clock (testutil.DeterministicClock)
//   - In-memory SQLite database (isolated per scenario)
//
// This keeps snapshots identical across runs for golden file comparison.
package harness
