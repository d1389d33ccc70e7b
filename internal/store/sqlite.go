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
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"monodash/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// itemRow is the database shape of one cached item.
type itemRow struct {
	Section   string       `db:"section"`
	Kind      string       `db:"kind"`
	Key       string       `db:"key"`
	Title     string       `db:"title"`
	Status    string       `db:"status"`
	Priority  string       `db:"priority"`
	Context   string       `db:"context"`
	URL       string       `db:"url"`
	CreatedAt sql.NullTime `db:"created_at"`
}

func toRow(section model.Section, it model.Item) itemRow {
	row := itemRow{
		Section:  string(section),
		Kind:     string(it.Kind),
		Key:      it.Key,
		Title:    it.Title,
		Status:   string(it.Status),
		Priority: it.Priority,
		Context:  it.Context,
		URL:      it.URL,
	}
	if !it.CreatedAt.IsZero() {
		row.CreatedAt = sql.NullTime{Time: it.CreatedAt, Valid: true}
	}
	return row
}

func (r itemRow) toItem() model.Item {
	it := model.Item{
		Kind:     model.Kind(r.Kind),
		Key:      r.Key,
		Title:    r.Title,
		Status:   model.Status(r.Status),
		Priority: r.Priority,
		Context:  r.Context,
		URL:      r.URL,
	}
	if r.CreatedAt.Valid {
		it.CreatedAt = r.CreatedAt.Time
	}
	return it
}

// ReplaceSection atomically swaps a section's cached items for a fresh
// fetch result.
func (s *SQLiteStore) ReplaceSection(
	ctx context.Context,
	section model.Section,
	items []model.Item,
	fetchedAt time.Time,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM items WHERE section = ?", string(section),
	); err != nil {
		return fmt.Errorf("clearing section %s: %w", section, err)
	}

	const insert = `
		INSERT INTO items (
			section, kind, key, title, status, priority, context, url, created_at
		) VALUES (
			:section, :kind, :key, :title, :status, :priority, :context, :url, :created_at
		)`
	for _, it := range items {
		if _, err := tx.NamedExecContext(ctx, insert, toRow(section, it)); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.Key, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO section_fetches (section, fetched_at) VALUES (?, ?)
		ON CONFLICT(section) DO UPDATE SET fetched_at = excluded.fetched_at`,
		string(section), fetchedAt.UTC(),
	); err != nil {
		return fmt.Errorf("recording fetch time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing section %s: %w", section, err)
	}
	return nil
}

// GetSection returns a section's cached items and when they were fetched.
func (s *SQLiteStore) GetSection(
	ctx context.Context,
	section model.Section,
) ([]model.Item, time.Time, error) {
	var rows []itemRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM items WHERE section = ? ORDER BY key", string(section),
	)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading section %s: %w", section, err)
	}

	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toItem())
	}
	model.SortItems(items)

	var fetchedAt time.Time
	err = s.db.GetContext(ctx, &fetchedAt,
		"SELECT fetched_at FROM section_fetches WHERE section = ?", string(section),
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("reading fetch time for %s: %w", section, err)
	}

	return items, fetchedAt, nil
}

// SetPref stores a small UI preference by key.
func (s *SQLiteStore) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing pref %s: %w", key, err)
	}
	return nil
}

// GetPref returns a stored preference, or "" when unset.
func (s *SQLiteStore) GetPref(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM prefs WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading pref %s: %w", key, err)
	}
	return value, nil
}

// RecordFetchError appends a source failure to the error log and prunes
// entries older than a week.
func (s *SQLiteStore) RecordFetchError(
	ctx context.Context,
	section model.Section,
	source, message string,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_errors (id, section, source, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), string(section), source, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording fetch error: %w", err)
	}

	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM fetch_errors WHERE created_at < ?", cutoff,
	); err != nil {
		return fmt.Errorf("pruning fetch errors: %w", err)
	}
	return nil
}

// RecentFetchErrors returns the newest recorded failures.
func (s *SQLiteStore) RecentFetchErrors(ctx context.Context, limit int) ([]FetchError, error) {
	if limit <= 0 {
		limit = 20
	}
	var errs []FetchError
	err := s.db.SelectContext(ctx, &errs,
		"SELECT * FROM fetch_errors ORDER BY created_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading fetch errors: %w", err)
	}
	return errs, nil
}
