package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-ai/aria/internal/provider"
)

func newTestEngine() *Engine {
	return NewEngine([]string{"ls", "pwd", "dir", "echo", "date"}, zerolog.Nop())
}

func TestExecute_UnsupportedAction(t *testing.T) {
	e := newTestEngine()

	res := e.Execute(context.Background(), provider.Action{Kind: "launch_rocket"}, "u1")
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unsupported action type")
}

func TestCreateAndDeleteFile(t *testing.T) {
	e := newTestEngine()
	path := filepath.Join(t.TempDir(), "sub", "note.txt")

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "create_file",
		Params: map[string]any{"path": path, "content": "hello"},
	}, "u1")
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	res = e.Execute(context.Background(), provider.Action{
		Kind:   "delete_file",
		Params: map[string]any{"path": path},
	}, "u1")
	require.True(t, res.Success, res.Error)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFile_Missing(t *testing.T) {
	e := newTestEngine()

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "delete_file",
		Params: map[string]any{"path": filepath.Join(t.TempDir(), "nope.txt")},
	}, "u1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "file not found")
}

func TestDeleteFile_RefusesDirectory(t *testing.T) {
	e := newTestEngine()

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "delete_file",
		Params: map[string]any{"path": t.TempDir()},
	}, "u1")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "directory")
}

func TestSearchFiles(t *testing.T) {
	e := newTestEngine()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report-2026.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("y"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deep", "REPORT-old.txt"), []byte("z"), 0o644))

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "search_files",
		Params: map[string]any{"query": "report", "directory": dir},
	}, "u1")
	require.True(t, res.Success, res.Error)

	assert.Equal(t, 2, res.Output["count"])
	results := res.Output["results"].([]map[string]any)
	assert.Len(t, results, 2)
}

func TestSystemInfo(t *testing.T) {
	e := newTestEngine()

	res := e.Execute(context.Background(), provider.Action{Kind: "system_info"}, "u1")
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Output["os"])
	assert.NotEmpty(t, res.Output["go_version"])
}

func TestRunCommand_Allowlisted(t *testing.T) {
	e := newTestEngine()

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "run_command",
		Params: map[string]any{"command": "echo hello world"},
	}, "u1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello world\n", res.Output["stdout"])
	assert.Equal(t, 0, res.Output["return_code"])
}

func TestRunCommand_Blocked(t *testing.T) {
	e := newTestEngine()

	for _, command := range []string{"rm -rf /", "curl http://example.com", "echo; rm x"} {
		res := e.Execute(context.Background(), provider.Action{
			Kind:   "run_command",
			Params: map[string]any{"command": command},
		}, "u1")
		if command == "echo; rm x" {
			// "echo;" is not the bare allowlisted word.
			assert.False(t, res.Success, command)
			continue
		}
		assert.False(t, res.Success, command)
		assert.Contains(t, res.Error, "Command not allowed")
	}
}

func TestRunCommand_EmptyAllowlist(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	res := e.Execute(context.Background(), provider.Action{
		Kind:   "run_command",
		Params: map[string]any{"command": "echo hi"},
	}, "u1")
	assert.False(t, res.Success)
}

func TestSupportedActions(t *testing.T) {
	e := newTestEngine()
	assert.ElementsMatch(t, []string{
		"open_app", "close_app", "create_file", "delete_file",
		"search_files", "system_info", "run_command",
	}, e.SupportedActions())
}
