// Package store handles persistent storage using SQLite.
//
// Single database holding users, their sessions, and the command history the
// assistant records for every processed command.
package store

import (
	"database/sql"
	"time"

	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"

	"github.com/aria-ai/aria/internal/errors"
)

// Store manages the assistant database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at the given path.
// Creates the database and tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to open database", errors.CategorySystem)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "failed to initialize schema", errors.CategorySystem)
	}

	return s, nil
}

// openDB opens a single SQLite database with optimal settings.
func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// Set performance pragmas
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ============================================================
// SCHEMA
// ============================================================

func (s *Store) initSchema() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		description TEXT
	);

	-- ============================================================
	-- USERS
	-- ============================================================

	CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		email            TEXT UNIQUE,
		wallet_address   TEXT UNIQUE,
		auth_method      TEXT NOT NULL DEFAULT 'email',
		preferences_json TEXT,
		is_active        INTEGER NOT NULL DEFAULT 1,
		created_at       INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at       INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_wallet ON users(wallet_address);

	-- ============================================================
	-- SESSIONS
	-- ============================================================

	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		session_json  TEXT,
		is_active     INTEGER NOT NULL DEFAULT 1,
		created_at    INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		last_activity INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, last_activity DESC);
	CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(is_active);

	-- ============================================================
	-- COMMAND HISTORY
	-- ============================================================

	CREATE TABLE IF NOT EXISTS command_history (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      TEXT NOT NULL,
		session_id   TEXT,
		command_text TEXT NOT NULL,
		command_type TEXT NOT NULL DEFAULT 'text',
		ai_response  TEXT,
		actions_json TEXT,
		confidence   REAL NOT NULL DEFAULT 0,
		model_used   TEXT,
		created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_user ON command_history(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_history_session ON command_history(session_id);

	-- ============================================================
	-- TRIGGERS
	-- ============================================================

	CREATE TRIGGER IF NOT EXISTS users_updated
		AFTER UPDATE ON users
		BEGIN
			UPDATE users SET updated_at = strftime('%s', 'now') WHERE id = NEW.id;
		END;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return ensureSchemaVersion(s.db, 1, "Initial schema")
}

func ensureSchemaVersion(db *sql.DB, version int, description string) error {
	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return err
	}

	if !current.Valid || int(current.Int64) < version {
		_, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version,
			description,
		)
		return err
	}

	return nil
}

// ============================================================
// ROW TYPES
// ============================================================

// User is a registered assistant user.
type User struct {
	ID            string
	Email         string
	WalletAddress string
	AuthMethod    string
	Preferences   string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session is one assistant session for a user.
type Session struct {
	ID           string
	UserID       string
	Data         string
	IsActive     bool
	CreatedAt    time.Time
	LastActivity time.Time
}

// CommandRecord is one processed command with its response.
type CommandRecord struct {
	ID          int64
	UserID      string
	SessionID   string
	Command     string
	CommandType string
	Response    string
	Actions     string
	Confidence  float64
	ModelUsed   string
	CreatedAt   time.Time
}
