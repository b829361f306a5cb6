package deck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"deckhand/internal/config"
	"deckhand/internal/fileutil"
)

// ErrNotFound is returned when a lookup targets a row that does not exist.
var ErrNotFound = errors.New("deck: not found")

// ErrSlideBusy is returned when a status change is refused because the slide
// is mid-generation.
var ErrSlideBusy = errors.New("deck: slide is busy")

// ErrInvalidTransition is returned for status changes the lifecycle forbids.
var ErrInvalidTransition = errors.New("deck: invalid status transition")

// Store persists projects, artifacts, slides, and image versions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the deck database under the
// configured data directory and applies pending migrations.
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("deck: config is required")
	}
	dbPath := filepath.Join(cfg.Paths.DataDir, "deckhand.db")
	if err := fileutil.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("deck: ensure data dir: %w", err)
	}
	return openStore(ctx, dbPath)
}

// OpenPath opens a store at an explicit database path. Used by tests and
// maintenance tooling.
func OpenPath(ctx context.Context, dbPath string) (*Store, error) {
	return openStore(ctx, dbPath)
}

func openStore(ctx context.Context, dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("deck: open database: %w", err)
	}
	// SQLite allows a single writer; serialize connections so deferred
	// read-then-write transactions cannot fail with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("deck: ping database: %w", err)
	}
	store := &Store{db: db, path: dbPath}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deck: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("deck: commit transaction: %w", err)
	}
	return nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func stringOrEmpty(value sql.NullString) string {
	if value.Valid {
		return value.String
	}
	return ""
}
