// Package graph is the durable knowledge graph: insight nodes plus
// automatically inferred temporal, entity, semantic and causal edges.
package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"anticlaw/internal/model"
	"anticlaw/internal/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
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

CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    edge_type TEXT NOT NULL,
    weight REAL DEFAULT 1.0,
    metadata TEXT,
    created TEXT,
    UNIQUE(source_id, target_id, edge_type),
    FOREIGN KEY (source_id) REFERENCES nodes(id),
    FOREIGN KEY (target_id) REFERENCES nodes(id)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(edge_type);
CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id);
CREATE INDEX IF NOT EXISTS idx_nodes_status ON nodes(status);
`

// Config bounds the edge-inference pass. The candidate bound is required:
// inference cost must stay flat as history grows.
type Config struct {
	TemporalWindow    time.Duration
	SemanticTopK      int
	CandidateLookback time.Duration
	MaxCandidates     int
}

// DefaultConfig mirrors the documented configuration defaults.
func DefaultConfig() Config {
	return Config{
		TemporalWindow:    30 * time.Minute,
		SemanticTopK:      3,
		CandidateLookback: 7 * 24 * time.Hour,
		MaxCandidates:     200,
	}
}

// Store is the SQLite-backed graph at <home>/.acl/graph.db. All methods
// are synchronous and complete before returning.
type Store struct {
	conn *sql.DB
	cfg  Config
	log  *zap.Logger
}

// Open opens the graph store, creating the backing file lazily.
func Open(path string, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sqlitedb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph store: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, model.StorageError("initializing graph schema", err)
	}
	if cfg.TemporalWindow <= 0 {
		cfg.TemporalWindow = DefaultConfig().TemporalWindow
	}
	if cfg.SemanticTopK <= 0 {
		cfg.SemanticTopK = DefaultConfig().SemanticTopK
	}
	if cfg.CandidateLookback <= 0 {
		cfg.CandidateLookback = DefaultConfig().CandidateLookback
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Store{conn: conn, cfg: cfg, log: log}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const nodeColumns = "id, content, category, importance, tags, project_id, chat_id, created, updated, status"

type rowScanner interface{ Scan(dest ...any) error }

func scanNode(row rowScanner) (model.Insight, error) {
	var (
		n                         model.Insight
		tagsJSON, created, updated string
		chatID                    sql.NullString
	)
	err := row.Scan(&n.ID, &n.Content, &n.Category, &n.Importance, &tagsJSON,
		&n.ProjectID, &chatID, &created, &updated, &n.Status)
	if err != nil {
		return n, err
	}
	if chatID.Valid {
		n.ChatID = chatID.String
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
			n.Tags = nil
		}
	}
	n.Created = model.ParseTime(created)
	n.Updated = model.ParseTime(updated)
	return n, nil
}

// Insert persists the insight and runs the edge-inference pass against a
// bounded working set of active nodes in the same project. The node and
// its inferred edges commit as a single transaction. Inserting an existing
// id replaces the node's fields and re-runs inference idempotently.
func (s *Store) Insert(ins model.Insight) (string, error) {
	ins.Normalize()
	if err := ins.Validate(); err != nil {
		return "", err
	}

	err := sqlitedb.Retry(func() error { return s.insertOnce(ins) })
	if err != nil {
		return "", err
	}
	s.log.Debug("inserted insight",
		zap.String("id", ins.ID),
		zap.String("project", ins.ProjectID),
		zap.String("category", string(ins.Category)))
	return ins.ID, nil
}

func (s *Store) insertOnce(ins model.Insight) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return model.StorageError("beginning insert", err)
	}
	defer tx.Rollback()

	// Re-insertion: the node's outgoing edges are artifacts of its own
	// prior inference pass. Drop and recompute them.
	if _, err := tx.Exec(`DELETE FROM edges WHERE source_id = ?`, ins.ID); err != nil {
		return model.StorageError("clearing inferred edges", err)
	}

	tagsJSON, err := json.Marshal(ins.Tags)
	if err != nil {
		return model.ValidationError("encoding tags: %v", err)
	}
	var chatID any
	if ins.ChatID != "" {
		chatID = ins.ChatID
	}
	_, err = tx.Exec(`
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			importance = excluded.importance,
			tags = excluded.tags,
			project_id = excluded.project_id,
			chat_id = excluded.chat_id,
			created = excluded.created,
			updated = excluded.updated,
			status = excluded.status`,
		ins.ID, ins.Content, ins.Category, ins.Importance, string(tagsJSON),
		ins.ProjectID, chatID, model.FormatTime(ins.Created),
		model.FormatTime(ins.Updated), ins.Status)
	if err != nil {
		return model.StorageError("writing node", err)
	}

	if err := s.inferEdges(tx, ins); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.StorageError("committing insert", err)
	}
	return nil
}

// Get returns a node by exact id, or nil if unknown.
func (s *Store) Get(id string) (*model.Insight, error) {
	row := s.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.StorageError("reading node", err)
	}
	return &n, nil
}

// Resolve finds a node by full id or unambiguous id prefix. Exact matches
// win; a prefix resolves only when exactly one active node matches. Zero or
// multiple matches, and purged nodes, resolve to nil.
func (s *Store) Resolve(idOrPrefix string) (*model.Insight, error) {
	if idOrPrefix == "" {
		return nil, nil
	}
	node, err := s.Get(idOrPrefix)
	if err != nil {
		return nil, err
	}
	if node != nil {
		if node.Status == model.StatusPurged {
			return nil, nil
		}
		return node, nil
	}

	rows, err := s.conn.Query(`
		SELECT `+nodeColumns+` FROM nodes
		WHERE id LIKE ? AND status = 'active' LIMIT 2`,
		idOrPrefix+"%")
	if err != nil {
		return nil, model.StorageError("resolving prefix", err)
	}
	defer rows.Close()

	var matches []model.Insight
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, model.StorageError("resolving prefix", err)
		}
		matches = append(matches, n)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("resolving prefix", err)
	}
	// Ambiguous prefixes are never silently resolved.
	if len(matches) != 1 {
		return nil, nil
	}
	return &matches[0], nil
}

// List returns active nodes, newest first, optionally scoped to a project.
func (s *Store) List(projectID string, limit int) ([]model.Insight, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE status = 'active'`
	args := []any{}
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, model.StorageError("listing nodes", err)
	}
	defer rows.Close()

	var nodes []model.Insight
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, model.StorageError("listing nodes", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// SetStatus transitions a node's status. Transitions are monotonic
// (active -> archived -> purged); reverse transitions fail validation.
// Purged nodes keep their edge rows but drop out of reads.
func (s *Store) SetStatus(id string, status model.Status) error {
	if statusRankKnown(status) < 0 {
		return model.ValidationError("unknown status %q", status)
	}
	node, err := s.Get(id)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	if node.Status == status {
		return nil
	}
	if !node.Status.CanTransition(status) {
		return model.ValidationError("cannot transition %s from %s to %s", id, node.Status, status)
	}
	return sqlitedb.Retry(func() error {
		_, err := s.conn.Exec(`UPDATE nodes SET status = ?, updated = ? WHERE id = ?`,
			status, model.FormatTime(time.Now()), id)
		if err != nil {
			return model.StorageError("updating status", err)
		}
		return nil
	})
}

func statusRankKnown(s model.Status) int {
	switch s {
	case model.StatusActive, model.StatusArchived, model.StatusPurged:
		return 0
	default:
		return -1
	}
}

// Retag replaces a node's tags.
func (s *Store) Retag(id string, tags []string) error {
	node, err := s.Get(id)
	if err != nil {
		return err
	}
	if node == nil || node.Status == model.StatusPurged {
		return fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return model.ValidationError("encoding tags: %v", err)
	}
	return sqlitedb.Retry(func() error {
		_, err := s.conn.Exec(`UPDATE nodes SET tags = ?, updated = ? WHERE id = ?`,
			string(tagsJSON), model.FormatTime(time.Now()), id)
		if err != nil {
			return model.StorageError("updating tags", err)
		}
		return nil
	})
}

// Recategorize changes a node's category.
func (s *Store) Recategorize(id string, category model.Category) error {
	node, err := s.Get(id)
	if err != nil {
		return err
	}
	if node == nil || node.Status == model.StatusPurged {
		return fmt.Errorf("node %s: %w", id, model.ErrNotFound)
	}
	probe := *node
	probe.Category = category
	if err := probe.Validate(); err != nil {
		return err
	}
	return sqlitedb.Retry(func() error {
		_, err := s.conn.Exec(`UPDATE nodes SET category = ?, updated = ? WHERE id = ?`,
			category, model.FormatTime(time.Now()), id)
		if err != nil {
			return model.StorageError("updating category", err)
		}
		return nil
	})
}

// NodeCount returns the number of active nodes.
func (s *Store) NodeCount() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM nodes WHERE status = 'active'`).Scan(&n)
	if err != nil {
		return 0, model.StorageError("counting nodes", err)
	}
	return n, nil
}

// EdgeCount returns the number of edges, optionally of one type.
func (s *Store) EdgeCount(edgeType model.EdgeType) (int, error) {
	var (
		n   int
		err error
	)
	if edgeType == "" {
		err = s.conn.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&n)
	} else {
		err = s.conn.QueryRow(`SELECT COUNT(*) FROM edges WHERE edge_type = ?`, edgeType).Scan(&n)
	}
	if err != nil {
		return 0, model.StorageError("counting edges", err)
	}
	return n, nil
}

const edgeColumns = "id, source_id, target_id, edge_type, weight, metadata, created"

func scanEdge(row rowScanner) (model.Edge, error) {
	var (
		e                 model.Edge
		metaJSON, created string
	)
	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.EdgeType, &e.Weight, &metaJSON, &created)
	if err != nil {
		return e, err
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			e.Metadata = nil
		}
	}
	e.Created = model.ParseTime(created)
	return e, nil
}

// Edges returns all edges touching a node, optionally filtered by type.
// Both directions count as adjacency.
func (s *Store) Edges(nodeID string, edgeType model.EdgeType) ([]model.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges WHERE (source_id = ? OR target_id = ?)`
	args := []any{nodeID, nodeID}
	if edgeType != "" {
		query += ` AND edge_type = ?`
		args = append(args, edgeType)
	}
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, model.StorageError("reading edges", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, model.StorageError("reading edges", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
