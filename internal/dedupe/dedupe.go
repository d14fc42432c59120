package dedupe

import (
	"fmt"
	"strconv"

	"github.com/roach88/schemasan/internal/value"
)

// Level describes one nested array to deduplicate inside every kept record.
type Level struct {
	// Field names the array inside each record (e.g. "fields").
	Field string `json:"field" yaml:"field"`

	// Key names the identity field of the nested records (e.g. "key").
	Key string `json:"key" yaml:"key"`
}

// Report summarizes one deduplication pass.
type Report struct {
	Scanned int `json:"scanned"`
	Kept    int `json:"kept"`
	Removed int `json:"removed"`

	// Nested aggregates the next level over every kept record.
	// Nil when no nested level was requested.
	Nested *Report `json:"nested,omitempty"`
}

// TotalRemoved returns the number of records removed at this level and
// every level below it.
func (r *Report) TotalRemoved() int {
	if r == nil {
		return 0
	}
	return r.Removed + r.Nested.TotalRemoved()
}

// Deduplicate returns a copy of records with duplicate key-field values
// removed. The first record seen for each key is kept in full; later ones
// are discarded. Relative order of kept records is preserved.
//
// records may be nil (treated as an empty array) or a value.Array. Any other
// type fails with ErrNotSequence and a nil result, so callers can tell
// "nothing to keep" (empty, non-nil) from "no safe output" (nil + error).
//
// Each Level in nested is applied to the kept records of the level above:
// nested[0] to every kept record, nested[1] to every kept record of
// nested[0], and so on. A record without the nested field gets an empty
// array in its place.
//
// The caller's records are never modified.
func Deduplicate(keyField string, records value.Value, nested ...Level) (value.Array, error) {
	out, _, err := Run(keyField, records, nested...)
	return out, err
}

// DeduplicateNested deduplicates records by keyField and, when both
// nestedArrayField and nestedKeyField are non-empty, the array under
// nestedArrayField in each kept record by nestedKeyField. When either name
// is empty, nested arrays are left untouched.
func DeduplicateNested(keyField string, records value.Value, nestedArrayField, nestedKeyField string) (value.Array, error) {
	if nestedArrayField == "" || nestedKeyField == "" {
		return Deduplicate(keyField, records)
	}
	return Deduplicate(keyField, records, Level{Field: nestedArrayField, Key: nestedKeyField})
}

// Run is Deduplicate with a Report of what was removed at each level.
func Run(keyField string, records value.Value, nested ...Level) (value.Array, *Report, error) {
	if keyField == "" {
		return nil, nil, ErrEmptyKeyField
	}
	for i, lvl := range nested {
		if lvl.Field == "" || lvl.Key == "" {
			return nil, nil, fmt.Errorf("nested level %d: %w", i, ErrInvalidLevel)
		}
	}

	arr, err := asSequence(records, "")
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	out, err := filter(keyField, value.CloneArray(arr), nested, "", report)
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

// asSequence accepts an absent value as an empty array and rejects every
// non-array type.
func asSequence(v value.Value, path string) (value.Array, error) {
	switch r := v.(type) {
	case nil:
		return value.Array{}, nil
	case value.Array:
		if r == nil {
			return value.Array{}, nil
		}
		return r, nil
	default:
		return nil, &PathError{Path: path, Kind: value.KindOf(v), Err: ErrNotSequence}
	}
}

// filter keeps the first record per identity. records must already be owned
// by the caller (copied), since kept records are updated in place when
// nested levels are applied.
func filter(keyField string, records value.Array, nested []Level, path string, report *Report) (value.Array, error) {
	seen := make(map[identity]struct{}, len(records))
	kept := make(value.Array, 0, len(records))
	keptIndex := make([]int, 0, len(records))

	for i, rec := range records {
		id, err := identityOf(rec, keyField, i)
		if err != nil {
			return nil, &PathError{Path: indexPath(path, i), Kind: value.KindOf(rec), Err: err}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, rec)
		keptIndex = append(keptIndex, i)
	}

	report.Scanned += len(records)
	report.Kept += len(kept)
	report.Removed += len(records) - len(kept)

	if len(nested) == 0 {
		return kept, nil
	}

	lvl := nested[0]
	if report.Nested == nil {
		report.Nested = &Report{}
	}
	for j, rec := range kept {
		obj, ok := rec.(*value.Object)
		if !ok {
			// Scalars cannot hold a nested array; they pass through as-is.
			continue
		}
		subPath := indexPath(path, keptIndex[j]) + "." + lvl.Field
		sub, _ := obj.Get(lvl.Field)
		subArr, err := asSequence(sub, subPath)
		if err != nil {
			return nil, err
		}
		cleaned, err := filter(lvl.Key, subArr, nested[1:], subPath, report.Nested)
		if err != nil {
			return nil, err
		}
		obj.Set(lvl.Field, cleaned)
	}

	return kept, nil
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
