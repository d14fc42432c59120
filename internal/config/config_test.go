package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasan/internal/dedupe"
	"github.com/roach88/schemasan/internal/sanitize"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sanitize.DefaultCollections(), cfg.Collections)

	s, err := cfg.Sanitizer()
	require.NoError(t, err)
	assert.Len(t, s.Collections(), 2)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "rules.yaml"))
	require.NoError(t, err)

	require.Len(t, cfg.Collections, 3)
	assert.Equal(t, sanitize.Collection{
		Name:   "objects",
		Key:    "key",
		Nested: []dedupe.Level{{Field: "fields", Key: "key"}},
	}, cfg.Collections[0])
	assert.Equal(t, sanitize.Collection{Name: "tasks", Key: "key"}, cfg.Collections[2])
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "rules.json"))
	require.NoError(t, err)
	assert.Equal(t, []sanitize.Collection{{Name: "objects", Key: "key"}}, cfg.Collections)
}

func TestLoad_CUE(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "rules.cue"))
	require.NoError(t, err)
	assert.Equal(t, sanitize.DefaultCollections(), cfg.Collections)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{"missing file", "nope.yaml", "failed to read config file"},
		{"unknown YAML field", "typo.yaml", "failed to parse YAML"},
		{"empty CUE key", "empty_key.cue", "collections"},
		{"unknown CUE field", "unknown_field.cue", "depth"},
		{"unsupported version", "version_one.yaml", "only version 0 is supported"},
		{"duplicate collection", "duplicate.yaml", "duplicate collection"},
		{"unsupported extension", "rules.toml", "unsupported config format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_CUEErrorHasPosition(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "empty_key.cue"))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, cfgErr.Pos.IsValid(), "expected a source position, got %v", cfgErr)
}

func TestLoad_UnsupportedFormatSentinel(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "rules.toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
