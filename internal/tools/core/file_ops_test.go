package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drover/internal/tools"
)

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2\nline3\n"), 0644))

	tool := ReadFileTool()

	t.Run("whole file", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{"path": path})
		require.NoError(t, err)
		assert.Equal(t, "line1\nline2\nline3\n", out.Content)
	})

	t.Run("line range", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"path":       path,
			"start_line": 2,
			"end_line":   2,
		})
		require.NoError(t, err)
		assert.Equal(t, "line2", out.Content)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), map[string]any{"path": filepath.Join(dir, "nope")})
		assert.Error(t, err)
	})
}

func TestWriteFileTool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.txt")

	tool := WriteFileTool()
	out, err := tool.Execute(context.Background(), map[string]any{
		"path":    path,
		"content": "written",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "7 bytes")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "written", string(data))

	// Writes always prompt.
	details := tool.ShouldConfirmExecute(map[string]any{"path": path, "content": "x"})
	require.NotNil(t, details)
	assert.Contains(t, details.Description, path)
}

func TestListDirTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	out, err := ListDirTool().Execute(context.Background(), map[string]any{"path": dir})
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nb.txt\nnested/", out.Content)
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg))

	for _, name := range []string{"read_file", "write_file", "list_dir", "glob", "grep"} {
		assert.True(t, reg.Has(name), "missing %s", name)
	}
}
