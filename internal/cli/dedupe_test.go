package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemasan/internal/dedupe"
	"github.com/roach88/schemasan/internal/store"
	"github.com/roach88/schemasan/internal/value"
)

const twoLevelRecords = `[
  {"key": "1", "fields": [{"keyId": "1"}, {"keyId": "2"}, {"keyId": "1"}]},
  {"key": "2", "fields": [{"keyId": "3"}]},
  {"key": "1", "fields": [{"keyId": "9"}]}
]`

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDedupeCommand_Stdout(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)

	stdout, _, err := executeCommand(t, "dedupe", in, "--key", "key", "--nested", "fields:keyId")
	require.NoError(t, err)

	got, err := value.Parse([]byte(stdout))
	require.NoError(t, err)
	want, err := value.Parse([]byte(`[
	  {"key": "1", "fields": [{"keyId": "1"}, {"keyId": "2"}]},
	  {"key": "2", "fields": [{"keyId": "3"}]}
	]`))
	require.NoError(t, err)
	assert.True(t, value.Equal(want, got), "got %s", stdout)

	newGoldie(t).Assert(t, "dedupe_two_level", []byte(stdout))
}

func TestDedupeCommand_OutputFile(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)
	out := filepath.Join(t.TempDir(), "clean.json")

	stdout, _, err := executeCommand(t, "dedupe", in, out, "--nested", "fields:keyId")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed 2 of 7 records")

	records := loadJSON(t, out).(value.Array)
	assert.Len(t, records, 2)
}

func TestDedupeCommand_JSON(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)

	stdout, _, err := executeCommand(t, "--format", "json", "dedupe", in)
	require.NoError(t, err)

	resp := decodeResponse(t, stdout)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)

	run := data["run"].(map[string]any)
	assert.Equal(t, store.KindDedupe, run["kind"])
	assert.EqualValues(t, 1, run["removed"])

	records, ok := data["records"].([]any)
	require.True(t, ok)
	assert.Len(t, records, 2)
}

func TestDedupeCommand_EmptyArray(t *testing.T) {
	in := writeRecords(t, `[]`)

	stdout, _, err := executeCommand(t, "--format", "json", "dedupe", in)
	require.NoError(t, err)

	data := decodeResponse(t, stdout).Data.(map[string]any)
	records, ok := data["records"].([]any)
	require.True(t, ok, "empty result must be an array, got %v", data["records"])
	assert.Empty(t, records)
}

func TestDedupeCommand_NotAnArray(t *testing.T) {
	in := writeRecords(t, `"not-an-array"`)

	stdout, _, err := executeCommand(t, "--format", "json", "dedupe", in)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSanitizeFailed, resp.Error.Code)
}

func TestDedupeCommand_InvalidNested(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)

	stdout, _, err := executeCommand(t, "--format", "json", "dedupe", in, "--nested", "fields")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidFlag, resp.Error.Code)
}

func TestDedupeCommand_EmptyKey(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)

	_, _, err := executeCommand(t, "dedupe", in, "--key=")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDedupeCommand_RecordsHistory(t *testing.T) {
	in := writeRecords(t, twoLevelRecords)
	db := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := executeCommand(t, "dedupe", in, "--db", db, "--nested", "fields:keyId")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.KindDedupe, run.Kind)
	assert.Equal(t, 2, run.Removed)
	assert.Equal(t, "", run.OutputPath)
}

func TestParseLevels(t *testing.T) {
	levels, err := ParseLevels([]string{"fields:key", "options:id"})
	require.NoError(t, err)
	assert.Equal(t, []dedupe.Level{{Field: "fields", Key: "key"}, {Field: "options", Key: "id"}}, levels)

	levels, err = ParseLevels(nil)
	require.NoError(t, err)
	assert.Empty(t, levels)

	for _, bad := range []string{"fields", ":key", "fields:", ""} {
		_, err := ParseLevels([]string{bad})
		assert.Error(t, err, "level %q", bad)
	}
}
