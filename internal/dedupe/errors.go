package dedupe

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSequence is returned when the records to deduplicate (or a nested
	// array named by a Level) are present but not a JSON array.
	ErrNotSequence = errors.New("not an array")

	// ErrNullRecord is returned when an element of the records array is null.
	// A null record has no fields, so its key cannot be read.
	ErrNullRecord = errors.New("record is null")

	// ErrEmptyKeyField is returned when the key field name is empty.
	ErrEmptyKeyField = errors.New("key field is required")

	// ErrInvalidLevel is returned when a nested Level is missing its array
	// field or its key field.
	ErrInvalidLevel = errors.New("nested level requires both an array field and a key field")
)

// PathError records where in the input a deduplication failure occurred.
// Path uses JavaScript-style accessors relative to the records argument,
// e.g. "[3].fields" or "[0].views[2]". An empty Path means the records
// argument itself.
type PathError struct {
	Path string // location of the offending value
	Kind string // JSON type found there ("string", "null", ...)
	Err  error  // ErrNotSequence or ErrNullRecord
}

func (e *PathError) Error() string {
	path := e.Path
	if path == "" {
		path = "records"
	}
	return fmt.Sprintf("%s: %v (got %s)", path, e.Err, e.Kind)
}

func (e *PathError) Unwrap() error {
	return e.Err
}
