package trust

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "trust.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGet_DefaultIsNone(t *testing.T) {
	s := newTestStore(t)

	level, err := s.Get("run_command", "")
	require.NoError(t, err)
	assert.Equal(t, LevelNone, level)
}

func TestTrustTool(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.TrustTool("run_command"))

	level, err := s.Get("run_command", "")
	require.NoError(t, err)
	assert.Equal(t, LevelTool, level)

	// Other tools are unaffected.
	level, err = s.Get("write_file", "")
	require.NoError(t, err)
	assert.Equal(t, LevelNone, level)
}

func TestTrustServer_CoversAllItsTools(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.TrustServer("mcp.example"))

	level, err := s.Get("any_tool", "mcp.example")
	require.NoError(t, err)
	assert.Equal(t, LevelServer, level)

	// A builtin (no server) is not covered by the server grant.
	level, err = s.Get("any_tool", "")
	require.NoError(t, err)
	assert.Equal(t, LevelNone, level)

	// Neither is a tool from a different server.
	level, err = s.Get("any_tool", "other.example")
	require.NoError(t, err)
	assert.Equal(t, LevelNone, level)
}

func TestUpsert_NeverDowngrades(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.TrustTool("run_command"))
	// Writing the same grant again keeps the level.
	require.NoError(t, s.TrustTool("run_command"))

	level, err := s.Get("run_command", "")
	require.NoError(t, err)
	assert.Equal(t, LevelTool, level)
}

func TestListAndClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.TrustTool("run_command"))
	require.NoError(t, s.TrustServer("mcp.example"))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, s.Clear())
	records, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.TrustTool("run_command"))
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()

	level, err := s2.Get("run_command", "")
	require.NoError(t, err)
	assert.Equal(t, LevelTool, level)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "none", LevelNone.String())
	assert.Equal(t, "once", LevelOnce.String())
	assert.Equal(t, "tool", LevelTool.String())
	assert.Equal(t, "server", LevelServer.String())
}
