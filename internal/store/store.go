// Package store keeps the LexDay tables in sqlite. Either the pure Go
// driver (modernc, "sqlite") or the cgo one (mattn, "sqlite3") can back it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

var ErrNotFound = errors.New("not found")

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to dsn and applies the schema. An empty driver means the
// pure Go one.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverModernc
	}
	if dsn != ":memory:" && dsn != "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent and
	// serialises writers the way sqlite wants.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source used for created_at and updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return &t
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func newID() string {
	return uuid.NewString()
}

func (s *Store) initialize(ctx context.Context) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		username TEXT,
		is_premium INTEGER NOT NULL DEFAULT 0,
		premium_until TEXT,
		fcm_token TEXT,
		notifications_enabled INTEGER NOT NULL DEFAULT 0,
		notification_days TEXT,
		current_streak INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auth_tokens (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		expires_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		genre TEXT,
		cover_url TEXT,
		total_pages INTEGER,
		external_id TEXT UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_books (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		current_page INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, book_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_books_status ON user_books(user_id, status)`,
	`CREATE TABLE IF NOT EXISTS reading_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT,
		start_time TEXT,
		end_time TEXT,
		start_page INTEGER,
		end_page INTEGER,
		read_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON reading_sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_read_at ON reading_sessions(read_at)`,
	`CREATE TABLE IF NOT EXISTS reading_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_type TEXT NOT NULL,
		target_value INTEGER NOT NULL,
		year INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS ai_conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_user ON ai_conversations(user_id)`,
	`CREATE TABLE IF NOT EXISTS ai_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES ai_conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON ai_messages(conversation_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		platform TEXT,
		product_id TEXT,
		original_purchase_date TEXT,
		expires_at TEXT,
		auto_renew INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS badges (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		icon TEXT,
		category TEXT,
		color TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS highlights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		location TEXT,
		note TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, book_id, text)
	)`,
}

// tx runs fn inside a transaction, rolling back on error.
func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
