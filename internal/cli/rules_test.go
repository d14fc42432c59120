package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesCommand_Default(t *testing.T) {
	stdout, _, err := executeCommand(t, "rules")
	require.NoError(t, err)

	want := "versions[0]\n" +
		"  objects by key\n" +
		"    fields by key\n" +
		"  scenes by key\n" +
		"    views by key\n"
	assert.Equal(t, want, stdout)
}

func TestRulesCommand_DefaultJSONGolden(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "rules")
	require.NoError(t, err)

	newGoldie(t).Assert(t, "rules_default_json", []byte(stdout))
}

func TestRulesCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "rules", "--config", "../config/testdata/rules.yaml")
	require.NoError(t, err)

	resp := decodeResponse(t, stdout)
	data := resp.Data.(map[string]any)
	collections, ok := data["collections"].([]any)
	require.True(t, ok)
	require.Len(t, collections, 3)

	tasks := collections[2].(map[string]any)
	assert.Equal(t, "tasks", tasks["name"])
	assert.Equal(t, "key", tasks["key"])
	assert.NotContains(t, tasks, "nested")
}

func TestRulesCommand_CUE(t *testing.T) {
	stdout, _, err := executeCommand(t, "rules", "--config", "../config/testdata/rules.cue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "views by key")
}

func TestRulesCommand_InvalidConfig(t *testing.T) {
	tests := []string{
		"../config/testdata/typo.yaml",
		"../config/testdata/unknown_field.cue",
		"../config/testdata/rules.toml",
		"../config/testdata/missing.yaml",
	}

	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			stdout, _, err := executeCommand(t, "rules", "--config", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "Error ["+ErrCodeInvalidConfig+"]")
		})
	}
}
