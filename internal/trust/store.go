// Package trust persists the session's tool-approval decisions. A trust
// record lets future calls to the same tool (or tools from the same origin
// server) skip re-confirmation.
package trust

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"drover/internal/logging"

	_ "modernc.org/sqlite"
)

// Level is a cached policy decision, ordered by increasing reach.
type Level int

const (
	// LevelNone means every call must be confirmed.
	LevelNone Level = iota

	// LevelOnce covers a single call and is never persisted.
	LevelOnce

	// LevelTool trusts all future calls to one tool.
	LevelTool

	// LevelServer trusts all tools from one origin server.
	LevelServer
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelOnce:
		return "once"
	case LevelTool:
		return "tool"
	case LevelServer:
		return "server"
	default:
		return "unknown"
	}
}

// Record is one persisted trust decision.
type Record struct {
	ToolName  string
	Server    string
	Level     Level
	UpdatedAt time.Time
}

// Store keeps trust records in SQLite. It is safe for concurrent use; the
// scheduler is the only writer.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore opens (creating if necessary) the trust database at path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Trust("trust store opened: %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trust_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool_name TEXT NOT NULL DEFAULT '',
		server TEXT NOT NULL DEFAULT '',
		level INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tool_name, server)
	);
	CREATE INDEX IF NOT EXISTS idx_trust_tool ON trust_records(tool_name);
	CREATE INDEX IF NOT EXISTS idx_trust_server ON trust_records(server);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize trust schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the effective trust level for a tool and its optional origin
// server: a server-level grant covers every tool from that server, otherwise
// the tool's own record applies.
func (s *Store) Get(toolName, server string) (Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if server != "" {
		var level int
		err := s.db.QueryRow(
			`SELECT level FROM trust_records WHERE server = ? AND tool_name = ''`,
			server,
		).Scan(&level)
		if err == nil && Level(level) >= LevelServer {
			return LevelServer, nil
		}
		if err != nil && err != sql.ErrNoRows {
			return LevelNone, fmt.Errorf("failed to read trust record: %w", err)
		}
	}

	var level int
	err := s.db.QueryRow(
		`SELECT level FROM trust_records WHERE tool_name = ? AND server = ''`,
		toolName,
	).Scan(&level)
	if err == sql.ErrNoRows {
		return LevelNone, nil
	}
	if err != nil {
		return LevelNone, fmt.Errorf("failed to read trust record: %w", err)
	}
	return Level(level), nil
}

// TrustTool records a tool-level grant. Levels never downgrade implicitly;
// use Clear to revoke.
func (s *Store) TrustTool(toolName string) error {
	return s.upsert(toolName, "", LevelTool)
}

// TrustServer records a server-level grant covering all of its tools.
func (s *Store) TrustServer(server string) error {
	return s.upsert("", server, LevelServer)
}

func (s *Store) upsert(toolName, server string, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO trust_records (tool_name, server, level, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tool_name, server) DO UPDATE SET
			level = MAX(level, excluded.level),
			updated_at = CURRENT_TIMESTAMP`,
		toolName, server, int(level),
	)
	if err != nil {
		return fmt.Errorf("failed to write trust record: %w", err)
	}

	logging.Trust("trust granted: tool=%q server=%q level=%s", toolName, server, level)
	return nil
}

// List returns all persisted records, most recently updated first.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT tool_name, server, level, updated_at
		FROM trust_records ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trust records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var level int
		if err := rows.Scan(&r.ToolName, &r.Server, &level, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trust record: %w", err)
		}
		r.Level = Level(level)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Clear removes all trust records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM trust_records`); err != nil {
		return fmt.Errorf("failed to clear trust records: %w", err)
	}
	logging.Trust("trust records cleared")
	return nil
}
