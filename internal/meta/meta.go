// Package meta is the search index: a durable, queryable projection of
// conversations, scanned source files and insights, with full-text
// matching per kind and a cross-kind ranked merge.
package meta

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"anticlaw/internal/model"
	"anticlaw/internal/sqlitedb"
)

// Kind identifies one of the three searchable record kinds.
type Kind string

const (
	KindChat    Kind = "chat"
	KindFile    Kind = "file"
	KindInsight Kind = "insight"
)

// Kinds lists all searchable kinds in merge-priority order.
var Kinds = []Kind{KindChat, KindFile, KindInsight}

// ValidKind reports whether k names a known record kind.
func ValidKind(k Kind) bool {
	return k == KindChat || k == KindFile || k == KindInsight
}

const schema = `
CREATE TABLE IF NOT EXISTS chats (
    id TEXT PRIMARY KEY,
    title TEXT,
    project_id TEXT,
    provider TEXT,
    remote_id TEXT,
    created TEXT,
    updated TEXT,
    tags TEXT,
    summary TEXT,
    importance TEXT,
    status TEXT,
    file_path TEXT,
    token_count INTEGER,
    message_count INTEGER,
    content TEXT
);

CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT,
    description TEXT,
    created TEXT,
    updated TEXT,
    tags TEXT,
    status TEXT,
    dir_path TEXT
);

CREATE TABLE IF NOT EXISTS insights (
    id TEXT PRIMARY KEY,
    content TEXT,
    category TEXT,
    importance TEXT,
    tags TEXT,
    project_id TEXT,
    chat_id TEXT,
    created TEXT,
    updated TEXT,
    status TEXT
);

CREATE TABLE IF NOT EXISTS source_files (
    id TEXT PRIMARY KEY,
    file_path TEXT UNIQUE,
    filename TEXT,
    extension TEXT,
    language TEXT,
    size INTEGER,
    hash TEXT,
    indexed_at TEXT,
    project_id TEXT,
    content TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS chats_fts USING fts5(
    chat_id UNINDEXED, title, summary, content, tags
);

CREATE VIRTUAL TABLE IF NOT EXISTS insights_fts USING fts5(
    insight_id UNINDEXED, content, tags
);

CREATE VIRTUAL TABLE IF NOT EXISTS source_files_fts USING fts5(
    file_id UNINDEXED, filename, content
);
`

// DB is the SQLite-backed search index at <home>/.acl/meta.db.
type DB struct {
	conn *sql.DB
	log  *zap.Logger
}

// Open opens the index, creating the backing file lazily.
func Open(path string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sqlitedb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, model.StorageError("initializing index schema", err)
	}
	return &DB{conn: conn, log: log}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Count returns the number of indexed records of a kind. Insight rows that
// have been purged or archived do not count. The per-kind id primary key
// makes this an index-only lookup.
func (d *DB) Count(kind Kind) (int, error) {
	var (
		n   int
		err error
	)
	switch kind {
	case KindChat:
		err = d.conn.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&n)
	case KindFile:
		err = d.conn.QueryRow(`SELECT COUNT(*) FROM source_files`).Scan(&n)
	case KindInsight:
		err = d.conn.QueryRow(`SELECT COUNT(*) FROM insights WHERE status = 'active'`).Scan(&n)
	default:
		return 0, model.ValidationError("unknown record kind %q", kind)
	}
	if err != nil {
		return 0, model.StorageError("counting records", err)
	}
	return n, nil
}
