// Package store persists fetched items in a local SQLite cache so the
// dashboard can render instantly on startup and survive offline stretches.
package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"monodash/internal/model"
)

// FetchError is one recorded source failure.
type FetchError struct {
	ID        string    `db:"id"`
	Section   string    `db:"section"`
	Source    string    `db:"source"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// Store defines the cache persistence interface.
type Store interface {
	// ReplaceSection atomically swaps a section's cached items for a
	// fresh fetch result.
	ReplaceSection(ctx context.Context, section model.Section, items []model.Item, fetchedAt time.Time) error

	// GetSection returns a section's cached items and when they were
	// fetched. A never-fetched section yields no items and a zero time.
	GetSection(ctx context.Context, section model.Section) ([]model.Item, time.Time, error)

	// SetPref stores a small UI preference by key.
	SetPref(ctx context.Context, key, value string) error

	// GetPref returns a stored preference, or "" when unset.
	GetPref(ctx context.Context, key string) (string, error)

	// RecordFetchError appends a source failure to the error log and
	// prunes entries older than a week.
	RecordFetchError(ctx context.Context, section model.Section, source, message string) error

	// RecentFetchErrors returns the newest recorded failures.
	RecentFetchErrors(ctx context.Context, limit int) ([]FetchError, error)

	Close() error
}

// PrefActiveSection is the preference key for the last focused section.
const PrefActiveSection = "active_section"

// DefaultDBPath returns the default cache database location under the
// user's cache directory.
func DefaultDBPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "monodash.db")
	}
	return filepath.Join(base, "monodash", "monodash.db")
}

// Fresh reports whether a cache timestamp is within the TTL. A zero
// timestamp is never fresh; a non-positive TTL disables caching.
func Fresh(fetchedAt time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() || ttl <= 0 {
		return false
	}
	return time.Since(fetchedAt) < ttl
}
