package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/schemasan/internal/sanitize"
)

//go:embed schema.cue
var schemaCUE string

// ErrUnsupportedFormat is returned for a config file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config holds the deduplication rules for a sanitize run.
type Config struct {
	// VersionIndex selects the version to sanitize. Only 0 is supported;
	// the field exists so a config can state it explicitly.
	VersionIndex int `json:"version_index,omitempty" yaml:"version_index,omitempty"`

	// Collections are the arrays of versions[0] to deduplicate, in order.
	Collections []sanitize.Collection `json:"collections" yaml:"collections"`
}

// Default returns the built-in rules: objects/fields and scenes/views,
// all keyed by "key".
func Default() *Config {
	return &Config{Collections: sanitize.DefaultCollections()}
}

// Error is a config error with an optional source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a config file. The format is chosen by extension:
// .yaml/.yml/.json are decoded as YAML (JSON is a subset), .cue is
// evaluated with CUE and checked against the embedded #Config schema.
// Unknown fields are rejected in both formats.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		cfg, err = parseYAML(data)
	case ".cue":
		cfg, err = parseCUE(data, path)
	default:
		return nil, fmt.Errorf("%w: %q (want .yaml, .yml, .json or .cue)", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseYAML decodes YAML with strict field validation (catches typos like
// "collection:" vs "collections:").
func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// parseCUE evaluates data, unifies it with #Config and decodes the result.
func parseCUE(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	return &cfg, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	e := &Error{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}

// Validate checks the rules independently of the file format, so YAML
// configs get the same checks the CUE schema applies.
func (c *Config) Validate() error {
	if c.VersionIndex != 0 {
		return &Error{Field: "version_index", Message: fmt.Sprintf("only version 0 is supported, got %d", c.VersionIndex)}
	}
	if _, err := sanitize.New(c.Collections...); err != nil {
		return &Error{Field: "collections", Message: err.Error()}
	}
	return nil
}

// Sanitizer builds a sanitizer for these rules.
func (c *Config) Sanitizer() (*sanitize.Sanitizer, error) {
	return sanitize.New(c.Collections...)
}
