package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/schemasan/internal/sanitize"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/value"
)

// defaultKeyField is the identity field assumed when an assertion sets none.
const defaultKeyField = "key"

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for history assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertKeys:
			err = assertKeys(result.Document, assertion)
		case AssertNestedKeys:
			err = assertNestedKeys(result.Document, assertion)
		case AssertRemoved:
			err = assertRemoved(result, assertion)
		case AssertFieldEquals:
			err = assertFieldEquals(result.Document, assertion)
		case AssertHistory:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: history requires database context", i)
			} else {
				err = assertHistory(actx.Ctx, actx.Store, result.Outcome.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertKeys checks the record keys of a collection, in order.
func assertKeys(doc *value.Object, a Assertion) error {
	records, err := collectionOf(doc, a.Collection)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("collection %s", a.Collection), Actual: err.Error()}
	}

	got := recordKeys(records, keyFieldOf(a))
	if !slices.Equal(got, a.Keys) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s keys %v", a.Collection, a.Keys),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertNestedKeys checks the keys of a nested array inside the record of
// a collection whose key is a.Record.
func assertNestedKeys(doc *value.Object, a Assertion) error {
	records, err := collectionOf(doc, a.Collection)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("collection %s", a.Collection), Actual: err.Error()}
	}

	keyField := keyFieldOf(a)
	where := fmt.Sprintf("%s[%s].%s", a.Collection, a.Record, a.Field)
	for _, rec := range records {
		obj, ok := rec.(*value.Object)
		if !ok {
			continue
		}
		k, present := obj.Get(keyField)
		if keyText(k, present) != a.Record {
			continue
		}

		nested, _ := obj.Get(a.Field)
		arr, ok := nested.(value.Array)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: where + " to be an array", Actual: value.KindOf(nested)}
		}
		got := recordKeys(arr, keyField)
		if !slices.Equal(got, a.Keys) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s keys %v", where, a.Keys),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
		return nil
	}

	return &AssertionError{Type: a.Type, Expected: where, Actual: fmt.Sprintf("no record with %s %q", keyField, a.Record)}
}

// assertRemoved checks the total number of records removed from one
// collection across all of its levels.
func assertRemoved(result *Result, a Assertion) error {
	var report *sanitize.CollectionReport
	for i := range result.Outcome.Reports {
		if result.Outcome.Reports[i].Name == a.Collection {
			report = &result.Outcome.Reports[i]
			break
		}
	}
	if report == nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("report for %s", a.Collection), Actual: "no report"}
	}

	if got := report.Report.TotalRemoved(); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d removed from %s", a.Count, a.Collection),
			Actual:   fmt.Sprintf("%d removed", got),
		}
	}
	return nil
}

// assertFieldEquals checks that a top-level document field carries a value.
func assertFieldEquals(doc *value.Object, a Assertion) error {
	if doc == nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("field %s", a.Field), Actual: "no sanitized document"}
	}

	want, err := toValue(a.Value)
	if err != nil {
		return fmt.Errorf("%s: expected value: %w", a.Type, err)
	}
	got, _ := doc.Get(a.Field)
	if !value.Equal(want, got) {
		gotJSON, _ := value.Marshal(got)
		wantJSON, _ := value.Marshal(want)
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Field, wantJSON),
			Actual:   string(gotJSON),
		}
	}
	return nil
}

// assertHistory reads the run row back from the store and checks that
// every expected field matches (subset match).
func assertHistory(ctx context.Context, st *store.Store, runID string, a Assertion) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("run %s", runID), Actual: err.Error()}
	}

	row, err := toValue(run)
	if err != nil {
		return fmt.Errorf("%s: encode run: %w", a.Type, err)
	}
	obj := row.(*value.Object)

	// Check fields in sorted order for deterministic error messages
	fields := make([]string, 0, len(a.Expect))
	for field := range a.Expect {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		want, err := toValue(a.Expect[field])
		if err != nil {
			return fmt.Errorf("%s: expected %s: %w", a.Type, field, err)
		}
		got, ok := obj.Get(field)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("field %s", field), Actual: "field not in run record"}
		}
		if !value.Equal(want, got) {
			gotJSON, _ := value.Marshal(got)
			wantJSON, _ := value.Marshal(want)
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s = %s", field, wantJSON),
				Actual:   string(gotJSON),
			}
		}
	}
	return nil
}

// collectionOf returns versions[0][name] of a sanitized document.
func collectionOf(doc *value.Object, name string) (value.Array, error) {
	if doc == nil {
		return nil, fmt.Errorf("no sanitized document")
	}
	versions, _ := doc.Get(sanitize.VersionsField)
	arr, ok := versions.(value.Array)
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("document has no versions")
	}
	version, ok := arr[0].(*value.Object)
	if !ok {
		return nil, fmt.Errorf("versions[0] is %s", value.KindOf(arr[0]))
	}
	coll, _ := version.Get(name)
	records, ok := coll.(value.Array)
	if !ok {
		return nil, fmt.Errorf("versions[0].%s is %s", name, value.KindOf(coll))
	}
	return records, nil
}

func keyFieldOf(a Assertion) string {
	if a.Key == "" {
		return defaultKeyField
	}
	return a.Key
}

// recordKeys lists the key of every record as text.
func recordKeys(records value.Array, keyField string) []string {
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.(*value.Object)
		if !ok {
			keys = append(keys, "<"+value.KindOf(rec)+">")
			continue
		}
		k, present := obj.Get(keyField)
		keys = append(keys, keyText(k, present))
	}
	return keys
}

// keyText renders a key value the way scenario files write it.
func keyText(v value.Value, present bool) string {
	if !present {
		return "<absent>"
	}
	switch k := v.(type) {
	case value.String:
		return string(k)
	case value.Number:
		return string(k)
	case value.Bool:
		if k {
			return "true"
		}
		return "false"
	case value.Null:
		return "null"
	default:
		return "<" + value.KindOf(v) + ">"
	}
}

// toValue converts a decoded YAML value (or any JSON-encodable Go value)
// into a value.Value by round-tripping through JSON.
func toValue(v any) (value.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return value.Parse(data)
}
