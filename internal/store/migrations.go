package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	section    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	key        TEXT NOT NULL,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	priority   TEXT NOT NULL DEFAULT '',
	context    TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	created_at DATETIME,
	PRIMARY KEY (section, kind, key)
);

CREATE TABLE IF NOT EXISTS section_fetches (
	section    TEXT PRIMARY KEY,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_errors (
	id         TEXT PRIMARY KEY,
	section    TEXT NOT NULL,
	source     TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_section ON items(section);
CREATE INDEX IF NOT EXISTS idx_fetch_errors_created ON fetch_errors(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
