package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/schemasan/internal/pipeline"
	"github.com/roach88/schemasan/internal/store"
)

// Scenario defines one sanitizer regression case.
// A scenario names a source document, optionally a rules file, and what the
// sanitized output and run history must look like.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is the source document. Relative paths are resolved against
	// the scenario file's directory.
	Input string `yaml:"input"`

	// Config is an optional rules file (.yaml, .json or .cue), resolved
	// like Input. Empty means the default objects/scenes rules.
	Config string `yaml:"config,omitempty"`

	// RunID is a fixed run ID for deterministic history rows.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect describes the run outcome and the surviving record keys.
	Expect Expect `yaml:"expect"`

	// Assertions are additional checks on the document and run history.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the expected outcome of a scenario run.
type Expect struct {
	// Status is "ok" (default) or "failed".
	Status string `yaml:"status,omitempty"`

	// Stage is the failing stage (load, sanitize, store). Only valid with
	// status "failed".
	Stage string `yaml:"stage,omitempty"`

	// Error is a substring the run error must contain.
	Error string `yaml:"error,omitempty"`

	// Removed is the expected total number of removed records.
	Removed *int `yaml:"removed,omitempty"`

	// Objects lists the expected object keys, in order.
	Objects []string `yaml:"objects,omitempty"`

	// Scenes lists the expected scene keys, in order.
	Scenes []string `yaml:"scenes,omitempty"`
}

// Assertion validates the sanitized document or the recorded run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "keys": Record keys of a collection, in order
	// - "nested_keys": Record keys of a nested array inside one record
	// - "removed": Records removed from one collection (all levels)
	// - "field_equals": A top-level document field has a value
	// - "history": The recorded run row matches expected fields
	Type string `yaml:"type"`

	// Collection names an array of versions[0] (keys, nested_keys, removed).
	Collection string `yaml:"collection,omitempty"`

	// Record is the key of the record holding the nested array (nested_keys).
	Record string `yaml:"record,omitempty"`

	// Key is the identity field of the records. Defaults to "key".
	Key string `yaml:"key,omitempty"`

	// Field is the nested array field (nested_keys) or the top-level
	// document field (field_equals).
	Field string `yaml:"field,omitempty"`

	// Keys are the expected record keys (keys, nested_keys).
	Keys []string `yaml:"keys,omitempty"`

	// Count is the expected number of removed records (removed).
	Count int `yaml:"count,omitempty"`

	// Value is the expected field value (field_equals).
	Value any `yaml:"value,omitempty"`

	// Expect contains expected history fields (history).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertKeys        = "keys"
	AssertNestedKeys  = "nested_keys"
	AssertRemoved     = "removed"
	AssertFieldEquals = "field_equals"
	AssertHistory     = "history"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Input and Config paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Input = resolvePath(base, scenario.Input)
	scenario.Config = resolvePath(base, scenario.Config)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml/.yml scenario directly inside dir, in
// file name order. filter, when set, is a glob matched against the file
// name without extension.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(entry.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}

		s, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Input == "" {
		return fmt.Errorf("input is required")
	}

	switch s.Expect.Status {
	case "", store.StatusOK:
		if s.Expect.Stage != "" {
			return fmt.Errorf("expect.stage is only valid with status %q", store.StatusFailed)
		}
	case store.StatusFailed:
		switch s.Expect.Stage {
		case "", pipeline.StageLoad, pipeline.StageSanitize, pipeline.StageStore:
		default:
			return fmt.Errorf("expect.stage: unknown stage %q", s.Expect.Stage)
		}
	default:
		return fmt.Errorf("expect.status: must be %q or %q, got %q", store.StatusOK, store.StatusFailed, s.Expect.Status)
	}

	if s.Expect.Removed != nil && *s.Expect.Removed < 0 {
		return fmt.Errorf("expect.removed must be non-negative")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertKeys:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for keys", index)
		}
	case AssertNestedKeys:
		if a.Collection == "" || a.Record == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: collection, record and field are required for nested_keys", index)
		}
	case AssertRemoved:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for removed", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for removed", index)
		}
	case AssertFieldEquals:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field_equals", index)
		}
	case AssertHistory:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for history", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
