package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/schemasan/internal/config"
	"github.com/roach88/schemasan/internal/docio"
	"github.com/roach88/schemasan/internal/pipeline"
	"github.com/roach88/schemasan/internal/sanitize"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/testutil"
	"github.com/roach88/schemasan/internal/value"
)

// captureWriter keeps the stored document in memory instead of on disk.
type captureWriter struct {
	doc value.Value
}

func (w *captureWriter) Store(doc value.Value, path string) error {
	if doc == nil {
		return fmt.Errorf("%w: no document", docio.ErrUnwritable)
	}
	w.doc = doc
	return nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// deterministic clock and a fixed run ID, so the recorded history row is
// identical across runs.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the sanitizer from the scenario's rules (or the defaults)
// 3. Run the pipeline with the output captured in memory
// 4. Read the history row back from the store
// 5. Check Expect and the assertions
//
// A non-nil error means the scenario itself could not be executed (bad
// rules file, store failure). A failing run is a normal Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	san := sanitize.Default()
	if scenario.Config != "" {
		cfg, err := config.Load(scenario.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		san, err = cfg.Sanitizer()
		if err != nil {
			return nil, fmt.Errorf("failed to build sanitizer: %w", err)
		}
	}

	w := &captureWriter{}
	runner := &pipeline.Runner{
		Loader:    docio.FileLoader{},
		Writer:    w,
		Sanitizer: san,
		Recorder:  st,
		IDs:       testutil.NewFixedRunIDGenerator(scenario.RunID),
		Clock:     testutil.NewDeterministicClock(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	outcome, runErr := runner.Run(ctx, scenario.Input, "memory://"+scenario.Name+".json")

	result := NewResult()
	result.Outcome = outcome
	if doc, ok := w.doc.(*value.Object); ok && runErr == nil {
		result.Document = doc
	}

	run, err := st.ReadRun(ctx, outcome.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	result.History = &run

	for _, msg := range checkExpect(scenario.Expect, result, runErr) {
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

// checkExpect compares the run outcome with the scenario's Expect block.
func checkExpect(exp Expect, result *Result, runErr error) []string {
	var errs []string
	o := result.Outcome

	wantStatus := exp.Status
	if wantStatus == "" {
		wantStatus = store.StatusOK
	}
	if o.Status != wantStatus {
		msg := fmt.Sprintf("expect.status: expected %q, got %q", wantStatus, o.Status)
		if runErr != nil {
			msg += fmt.Sprintf(" (%v)", runErr)
		}
		errs = append(errs, msg)
		return errs
	}

	if exp.Stage != "" && o.Stage != exp.Stage {
		errs = append(errs, fmt.Sprintf("expect.stage: expected %q, got %q", exp.Stage, o.Stage))
	}

	if exp.Error != "" {
		var stageErr *pipeline.StageError
		if !errors.As(runErr, &stageErr) || !strings.Contains(runErr.Error(), exp.Error) {
			errs = append(errs, fmt.Sprintf("expect.error: expected error containing %q, got %v", exp.Error, runErr))
		}
	}

	if exp.Removed != nil && o.Removed != *exp.Removed {
		errs = append(errs, fmt.Sprintf("expect.removed: expected %d, got %d", *exp.Removed, o.Removed))
	}

	if exp.Objects != nil {
		if err := assertKeys(result.Document, Assertion{Type: "expect.objects", Collection: "objects", Keys: exp.Objects}); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if exp.Scenes != nil {
		if err := assertKeys(result.Document, Assertion{Type: "expect.scenes", Collection: "scenes", Keys: exp.Scenes}); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
