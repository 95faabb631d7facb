package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nfunc main() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.go"), []byte("package pkg\nvar Needle = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "deep", "more.go"), []byte("package deep\n// needle here too\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain text\n"), 0644))
	return dir
}

func TestGlobTool(t *testing.T) {
	dir := seedTree(t)
	tool := GlobTool()

	t.Run("recursive", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern":   "**/*.go",
			"base_path": dir,
		})
		require.NoError(t, err)
		assert.Contains(t, out.Content, "main.go")
		assert.Contains(t, out.Content, filepath.Join("pkg", "util.go"))
		assert.Contains(t, out.Content, filepath.Join("pkg", "deep", "more.go"))
		assert.NotContains(t, out.Content, "notes.txt")
	})

	t.Run("simple", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern":   "*.txt",
			"base_path": dir,
		})
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", out.Content)
	})

	t.Run("no matches", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern":   "*.rs",
			"base_path": dir,
		})
		require.NoError(t, err)
		assert.Contains(t, out.Content, "No files found")
	})
}

func TestGrepTool(t *testing.T) {
	dir := seedTree(t)
	tool := GrepTool()

	t.Run("matches with locations", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern": "(?i)needle",
			"path":    dir,
		})
		require.NoError(t, err)
		assert.Contains(t, out.Content, "util.go:2")
		assert.Contains(t, out.Content, "more.go:2")
	})

	t.Run("max matches", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern":     "package",
			"path":        dir,
			"max_matches": 1,
		})
		require.NoError(t, err)
		assert.Len(t, splitNonEmpty(out.Content), 1)
	})

	t.Run("invalid regexp", func(t *testing.T) {
		_, err := tool.Execute(context.Background(), map[string]any{
			"pattern": "(unclosed",
			"path":    dir,
		})
		assert.Error(t, err)
	})

	t.Run("no matches", func(t *testing.T) {
		out, err := tool.Execute(context.Background(), map[string]any{
			"pattern": "zzz_absent",
			"path":    dir,
		})
		require.NoError(t, err)
		assert.Contains(t, out.Content, "No matches")
	})
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
