package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/schemasan/internal/value"
)

// GoldenDir is where scenario golden files live, relative to the package
// under test.
const GoldenDir = "testdata/scenarios/golden"

// Snapshot renders the parts of a scenario run that golden files pin down:
// the outcome, the per-collection reports, and the sanitized document.
// Output is canonical JSON, so it is byte-stable across runs.
//
// Fingerprints and timings are left out; they are covered by history
// assertions instead.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	o := result.Outcome

	reports, err := toValue(o.Reports)
	if err != nil {
		return nil, fmt.Errorf("encode reports: %w", err)
	}

	var doc value.Value = value.Null{}
	if result.Document != nil {
		doc = result.Document
	}

	snap := value.ObjectOf(
		value.P("scenario_name", value.String(scenario.Name)),
		value.P("run_id", value.String(o.RunID)),
		value.P("status", value.String(o.Status)),
		value.P("stage", value.String(o.Stage)),
		value.P("scanned", value.Int(int64(o.Scanned))),
		value.P("removed", value.Int(int64(o.Removed))),
		value.P("reports", reports),
		value.P("document", doc),
	)
	return value.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/scenarios/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
