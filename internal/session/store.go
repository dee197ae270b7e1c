package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"minibot/internal/domain"

	_ "modernc.org/sqlite"
)

// Store is the local durable session backend, implemented on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*domain.Session
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger, cache: make(map[string]*domain.Session)}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		key         TEXT PRIMARY KEY,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS turns (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key TEXT NOT NULL REFERENCES sessions(key) ON DELETE CASCADE,
		role        TEXT NOT NULL,
		content     TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_key, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetOrCreate loads a session's full history, creating an empty session on
// first reference. Turns are loaded in chronological order regardless of
// insert order (ordering repair for rows written out of sequence).
func (s *Store) GetOrCreate(ctx context.Context, key string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.cache[key]; ok {
		return sess, nil
	}

	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM sessions WHERE key = ?`, key,
	).Scan(&createdAt, &updatedAt)

	switch {
	case err == sql.ErrNoRows:
		now := time.Now()
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (key, created_at, updated_at) VALUES (?, ?, ?)`,
			key, now, now,
		); err != nil {
			return nil, fmt.Errorf("create session %s: %w", key, err)
		}
		sess := &domain.Session{Key: key, CreatedAt: now, UpdatedAt: now}
		s.cache[key] = sess
		s.logger.Debug("created session", "key", key)
		return sess, nil
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns
		 WHERE session_key = ? ORDER BY created_at, id`, key,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns for %s: %w", key, err)
	}
	defer rows.Close()

	sess := &domain.Session{Key: key, CreatedAt: createdAt, UpdatedAt: updatedAt}
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, err
		}
		sess.Turns = append(sess.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sess.Persisted = len(sess.Turns)
	s.cache[key] = sess
	return sess, nil
}

// Save appends the session's unpersisted turns and bumps updated_at.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Persisted > len(sess.Turns) {
		// Turns were cleared in memory: rewrite the stored history.
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM turns WHERE session_key = ?`, sess.Key,
		); err != nil {
			return fmt.Errorf("rewrite turns for %s: %w", sess.Key, err)
		}
		sess.Persisted = 0
	}

	for _, t := range sess.Turns[sess.Persisted:] {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO turns (session_key, role, content, created_at) VALUES (?, ?, ?, ?)`,
			sess.Key, t.Role, t.Content, t.Timestamp,
		); err != nil {
			return fmt.Errorf("save turn for %s: %w", sess.Key, err)
		}
		sess.Persisted++
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE key = ?`, time.Now(), sess.Key,
	)
	if err != nil {
		return fmt.Errorf("touch session %s: %w", sess.Key, err)
	}
	s.cache[sess.Key] = sess
	return nil
}

// Delete removes a session and its turns. Returns true if a row existed.
func (s *Store) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, key)
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key)
	if err != nil {
		s.logger.Warn("failed to delete session", "key", key, "err", err)
		return false
	}
	// Cascade may be off depending on pragma; delete turns explicitly.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_key = ?`, key)

	n, _ := res.RowsAffected()
	return n > 0
}

func (s *Store) Close() error {
	return s.db.Close()
}
