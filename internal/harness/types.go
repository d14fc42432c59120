package harness

import (
	"github.com/roach88/schemasan/internal/pipeline"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/value"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the outcome matches Expect and every assertion holds.
	Pass bool `json:"pass"`

	// Outcome is what the pipeline reported for the run.
	Outcome *pipeline.Outcome `json:"outcome"`

	// Document is the sanitized document, nil when the run failed.
	Document *value.Object `json:"-"`

	// History is the run row read back from the store.
	History *store.Run `json:"history,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
