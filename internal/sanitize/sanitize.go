package sanitize

import (
	"errors"
	"fmt"

	"github.com/roach88/schemasan/internal/dedupe"
	"github.com/roach88/schemasan/internal/value"
)

var (
	// ErrNoDocument is returned when there is no source document to sanitize.
	ErrNoDocument = errors.New("no source document")

	// ErrNotDocument is returned when the source document is not a JSON object.
	ErrNotDocument = errors.New("source document is not an object")

	// ErrInvalidCollection is returned by New for a malformed collection rule.
	ErrInvalidCollection = errors.New("invalid collection")
)

// VersionsField is the top-level field holding the version list.
// Only its first element is read and written.
const VersionsField = "versions"

// Collection names an array inside versions[0] to deduplicate.
type Collection struct {
	// Name is the field of versions[0] holding the records (e.g. "objects").
	Name string `json:"name" yaml:"name"`

	// Key is the identity field of each record.
	Key string `json:"key" yaml:"key"`

	// Nested lists the arrays below each record to deduplicate as well,
	// outermost first.
	Nested []dedupe.Level `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// DefaultCollections returns the application-schema rules: objects by key
// with their fields by key, and scenes by key with their views by key.
func DefaultCollections() []Collection {
	return []Collection{
		{Name: "objects", Key: "key", Nested: []dedupe.Level{{Field: "fields", Key: "key"}}},
		{Name: "scenes", Key: "key", Nested: []dedupe.Level{{Field: "views", Key: "key"}}},
	}
}

// Sanitizer removes duplicate records from the collections of a document's
// first version.
type Sanitizer struct {
	collections []Collection
}

// Default returns a Sanitizer configured with DefaultCollections.
func Default() *Sanitizer {
	return &Sanitizer{collections: DefaultCollections()}
}

// New creates a Sanitizer for the given collections. Collections are
// processed in order; names must be unique and every key must be set.
func New(collections ...Collection) (*Sanitizer, error) {
	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: at least one collection is required", ErrInvalidCollection)
	}

	seen := make(map[string]bool, len(collections))
	for i, c := range collections {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: collections[%d]: name is required", ErrInvalidCollection, i)
		}
		if c.Key == "" {
			return nil, fmt.Errorf("%w: collection %q: key is required", ErrInvalidCollection, c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate collection %q", ErrInvalidCollection, c.Name)
		}
		seen[c.Name] = true
		for j, lvl := range c.Nested {
			if lvl.Field == "" || lvl.Key == "" {
				return nil, fmt.Errorf("%w: collection %q: nested[%d] needs field and key", ErrInvalidCollection, c.Name, j)
			}
		}
	}

	return &Sanitizer{collections: append([]Collection(nil), collections...)}, nil
}

// Collections returns a copy of the configured collections.
func (s *Sanitizer) Collections() []Collection {
	return append([]Collection(nil), s.collections...)
}

// CollectionReport is the deduplication report for one collection.
type CollectionReport struct {
	Name   string         `json:"name"`
	Report *dedupe.Report `json:"report"`
}

// Result is a sanitized document plus what was removed from it.
type Result struct {
	Document *value.Object
	Reports  []CollectionReport
}

// Removed returns the total number of records removed across all
// collections and levels.
func (r *Result) Removed() int {
	total := 0
	for _, cr := range r.Reports {
		total += cr.Report.TotalRemoved()
	}
	return total
}

// Sanitize returns a new document in which every configured collection of
// versions[0] has been deduplicated.
//
// The result is a shallow copy of doc whose "versions" holds exactly one
// element: a shallow copy of the original versions[0] (sibling fields kept)
// with each collection replaced by its deduplicated array. A document
// without versions, or whose versions[0] lacks a collection, still produces
// a valid result in which that collection is an empty array.
//
// doc is never modified. On failure the result is nil.
func (s *Sanitizer) Sanitize(doc value.Value) (*Result, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	root, ok := doc.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrNotDocument, value.KindOf(doc))
	}

	version := firstVersion(root)
	cleanVersion := value.ShallowCopy(version)

	reports := make([]CollectionReport, 0, len(s.collections))
	for _, c := range s.collections {
		records, _ := version.Get(c.Name)
		if _, isNull := records.(value.Null); isNull {
			records = nil
		}

		cleaned, report, err := dedupe.Run(c.Key, records, c.Nested...)
		if err != nil {
			return nil, fmt.Errorf("%s[0].%s: %w", VersionsField, c.Name, err)
		}
		cleanVersion.Set(c.Name, cleaned)
		reports = append(reports, CollectionReport{Name: c.Name, Report: report})
	}

	cleanDoc := value.ShallowCopy(root)
	cleanDoc.Set(VersionsField, value.Array{cleanVersion})

	return &Result{Document: cleanDoc, Reports: reports}, nil
}

// firstVersion returns versions[0] when it is an object. Any other shape
// (missing, not an array, empty, non-object element) yields nil, which
// reads as an empty version.
func firstVersion(root *value.Object) *value.Object {
	versions, _ := root.Get(VersionsField)
	arr, ok := versions.(value.Array)
	if !ok || len(arr) == 0 {
		return nil
	}
	obj, _ := arr[0].(*value.Object)
	return obj
}
