package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/schemasan/internal/dedupe"
	"github.com/roach88/schemasan/internal/docio"
	"github.com/roach88/schemasan/internal/sanitize"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/value"
)

// Run stages.
const (
	StageLoad     = "load"
	StageSanitize = "sanitize"
	StageDedupe   = "dedupe"
	StageStore    = "store"
)

// DedupeCollection is the report name used for DedupeFile runs.
const DedupeCollection = "records"

// Recorder persists one row of run history. *store.Store implements it.
type Recorder interface {
	WriteRun(ctx context.Context, run store.Run) (int64, error)
}

var _ Recorder = (*store.Store)(nil)

// StageError reports which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Outcome describes one finished run, successful or not.
type Outcome struct {
	RunID             string                      `json:"run_id"`
	Seq               int64                       `json:"seq,omitempty"`
	Kind              string                      `json:"kind"`
	Input             string                      `json:"input"`
	Output            string                      `json:"output,omitempty"`
	Status            string                      `json:"status"`
	Stage             string                      `json:"stage,omitempty"`
	Error             string                      `json:"error,omitempty"`
	Scanned           int                         `json:"scanned"`
	Removed           int                         `json:"removed"`
	Reports           []sanitize.CollectionReport `json:"reports"`
	InputFingerprint  string                      `json:"input_fingerprint,omitempty"`
	OutputFingerprint string                      `json:"output_fingerprint,omitempty"`
	StartedAt         time.Time                   `json:"started_at"`
	DurationMS        int64                       `json:"duration_ms"`

	// Result is the cleaned document or array. Nil when the run failed.
	Result value.Value `json:"-"`
}

// OK reports whether the run succeeded.
func (o *Outcome) OK() bool {
	return o.Status == store.StatusOK
}

// Runner executes sanitize and dedupe runs.
//
// Zero-value fields fall back to defaults: FileLoader, compact FileWriter,
// sanitize.Default(), UUIDv7Generator, SystemClock and slog.Default().
// Recorder is optional; when nil no history is kept.
type Runner struct {
	Loader    docio.Loader
	Writer    docio.Writer
	Sanitizer *sanitize.Sanitizer
	Recorder  Recorder
	IDs       IDGenerator
	Clock     Clock
	Logger    *slog.Logger
}

// Run loads the document at in, sanitizes it, and writes the result to out.
//
// The returned Outcome is never nil. On failure the error is a *StageError
// wrapping the cause (docio.ErrUnreadable, dedupe.ErrNotSequence, ...), the
// Outcome has Status "failed", and nothing has been written to out.
func (r *Runner) Run(ctx context.Context, in, out string) (*Outcome, error) {
	o := r.begin(store.KindSanitize, in, out)
	log := r.logger().With("run_id", o.RunID)
	log.Debug("sanitize started", "input", in, "output", out)

	doc, err := r.load(ctx, in)
	if err != nil {
		return r.fail(ctx, o, StageLoad, in, err)
	}
	o.InputFingerprint = r.fingerprint(doc)

	if err := ctx.Err(); err != nil {
		return r.fail(ctx, o, StageSanitize, in, err)
	}
	res, err := r.sanitizer().Sanitize(doc)
	if err != nil {
		return r.fail(ctx, o, StageSanitize, in, err)
	}
	o.Reports = res.Reports
	o.Removed = res.Removed()
	o.Scanned = scannedTotal(res.Reports)
	for _, cr := range res.Reports {
		log.Debug("collection deduplicated", "collection", cr.Name,
			"scanned", cr.Report.Scanned, "removed", cr.Report.TotalRemoved())
	}

	if err := ctx.Err(); err != nil {
		return r.fail(ctx, o, StageStore, out, err)
	}
	if err := r.writer().Store(res.Document, out); err != nil {
		return r.fail(ctx, o, StageStore, out, err)
	}

	o.Result = res.Document
	o.OutputFingerprint = r.fingerprint(res.Document)
	r.finish(ctx, o)
	log.Info("sanitize finished", "input", in, "output", out, "removed", o.Removed)
	return o, nil
}

// DedupeFile deduplicates a file whose top level is an array of records.
//
// keyField identifies top-level records; levels describe nested arrays, as
// in dedupe.Deduplicate. When out is empty nothing is written and the
// cleaned array is only returned in Outcome.Result.
func (r *Runner) DedupeFile(ctx context.Context, in, out, keyField string, levels []dedupe.Level) (*Outcome, error) {
	o := r.begin(store.KindDedupe, in, out)
	log := r.logger().With("run_id", o.RunID)
	log.Debug("dedupe started", "input", in, "key", keyField, "levels", len(levels))

	records, err := r.load(ctx, in)
	if err != nil {
		return r.fail(ctx, o, StageLoad, in, err)
	}
	o.InputFingerprint = r.fingerprint(records)

	if err := ctx.Err(); err != nil {
		return r.fail(ctx, o, StageDedupe, in, err)
	}
	cleaned, report, err := dedupe.Run(keyField, records, levels...)
	if err != nil {
		return r.fail(ctx, o, StageDedupe, in, err)
	}
	o.Reports = []sanitize.CollectionReport{{Name: DedupeCollection, Report: report}}
	o.Removed = report.TotalRemoved()
	o.Scanned = scannedTotal(o.Reports)

	if out != "" {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, o, StageStore, out, err)
		}
		if err := r.writer().Store(cleaned, out); err != nil {
			return r.fail(ctx, o, StageStore, out, err)
		}
	}

	o.Result = cleaned
	o.OutputFingerprint = r.fingerprint(cleaned)
	r.finish(ctx, o)
	log.Info("dedupe finished", "input", in, "output", out, "removed", o.Removed)
	return o, nil
}

func (r *Runner) begin(kind, in, out string) *Outcome {
	return &Outcome{
		RunID:     r.ids().Generate(),
		Kind:      kind,
		Input:     in,
		Output:    out,
		Status:    store.StatusOK,
		Reports:   []sanitize.CollectionReport{},
		StartedAt: r.clock().Now().UTC(),
	}
}

func (r *Runner) load(ctx context.Context, path string) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.loader().Load(path)
}

// fail marks o as failed at stage, logs the cause, and records the run.
func (r *Runner) fail(ctx context.Context, o *Outcome, stage, path string, err error) (*Outcome, error) {
	o.Status = store.StatusFailed
	o.Stage = stage
	o.Error = err.Error()
	o.Result = nil
	o.OutputFingerprint = ""

	r.logger().Error("run failed",
		"run_id", o.RunID,
		"kind", o.Kind,
		"stage", stage,
		"path", path,
		"error", err,
	)
	r.finish(ctx, o)
	return o, &StageError{Stage: stage, Err: err}
}

// finish stamps the duration and writes the history row. A history write
// failure is logged but does not change the outcome of the run.
func (r *Runner) finish(ctx context.Context, o *Outcome) {
	o.DurationMS = r.clock().Now().Sub(o.StartedAt).Milliseconds()

	if r.Recorder == nil {
		return
	}

	reports, err := json.Marshal(o.Reports)
	if err != nil {
		r.logger().Warn("encode run reports", "run_id", o.RunID, "error", err)
		reports = []byte("[]")
	}

	seq, err := r.Recorder.WriteRun(context.WithoutCancel(ctx), store.Run{
		ID:                o.RunID,
		Kind:              o.Kind,
		InputPath:         o.Input,
		OutputPath:        o.Output,
		Status:            o.Status,
		Stage:             o.Stage,
		Error:             o.Error,
		InputFingerprint:  o.InputFingerprint,
		OutputFingerprint: o.OutputFingerprint,
		Scanned:           o.Scanned,
		Removed:           o.Removed,
		Reports:           string(reports),
		StartedAt:         o.StartedAt,
		DurationMS:        o.DurationMS,
	})
	if err != nil {
		r.logger().Warn("failed to record run", "run_id", o.RunID, "error", err)
		return
	}
	o.Seq = seq
}

func (r *Runner) fingerprint(v value.Value) string {
	fp, err := value.Fingerprint(v)
	if err != nil {
		r.logger().Debug("fingerprint unavailable", "error", err)
		return ""
	}
	return fp
}

func scannedTotal(reports []sanitize.CollectionReport) int {
	total := 0
	for _, cr := range reports {
		for rep := cr.Report; rep != nil; rep = rep.Nested {
			total += rep.Scanned
		}
	}
	return total
}

func (r *Runner) loader() docio.Loader {
	if r.Loader == nil {
		return docio.FileLoader{}
	}
	return r.Loader
}

func (r *Runner) writer() docio.Writer {
	if r.Writer == nil {
		return docio.FileWriter{}
	}
	return r.Writer
}

func (r *Runner) sanitizer() *sanitize.Sanitizer {
	if r.Sanitizer == nil {
		return sanitize.Default()
	}
	return r.Sanitizer
}

func (r *Runner) ids() IDGenerator {
	if r.IDs == nil {
		return UUIDv7Generator{}
	}
	return r.IDs
}

func (r *Runner) clock() Clock {
	if r.Clock == nil {
		return SystemClock{}
	}
	return r.Clock
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
