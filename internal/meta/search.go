package meta

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"anticlaw/internal/model"
)

// SearchResult is one ranked hit from Query or QueryUnified.
type SearchResult struct {
	ID        string  `json:"id"`
	Kind      Kind    `json:"kind"`
	Title     string  `json:"title"`
	ProjectID string  `json:"project_id"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	FilePath  string  `json:"file_path,omitempty"`
}

// QueryOptions narrows the legacy chat-only Query.
type QueryOptions struct {
	Project    string
	Tags       []string
	Importance model.Importance
	DateFrom   string
	DateTo     string
	MaxResults int
	Exact      bool
}

// buildMatch turns user text into an FTS5 MATCH expression. Exact mode is
// one quoted phrase (order-sensitive); default mode quotes each term
// individually so all terms must be present in any order. Quoting also
// neutralizes FTS5 operator syntax in user input.
func buildMatch(text string, exact bool) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	quote := func(s string) string {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	if exact {
		return quote(text)
	}
	terms := strings.Fields(text)
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = quote(t)
	}
	return strings.Join(quoted, " ")
}

// Query is the legacy narrow query over conversation records only, with
// project/tag/importance/date filters and an exact-phrase mode. Hits carry
// a snippet centered on the first match.
func (d *DB) Query(text string, opts QueryOptions) ([]SearchResult, error) {
	match := buildMatch(text, opts.Exact)
	if match == "" {
		return []SearchResult{}, nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 20
	}

	query := `
		SELECT f.chat_id, c.title, c.project_id, c.tags, c.file_path,
		       snippet(chats_fts, -1, '**', '**', '...', 16) AS snip,
		       f.rank AS score
		FROM chats_fts f
		JOIN chats c ON c.id = f.chat_id
		WHERE chats_fts MATCH ?`
	args := []any{match}

	if opts.Project != "" {
		query += ` AND c.project_id = ?`
		args = append(args, opts.Project)
	}
	if opts.Importance != "" {
		query += ` AND c.importance = ?`
		args = append(args, opts.Importance)
	}
	if opts.DateFrom != "" {
		query += ` AND c.created >= ?`
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != "" {
		query += ` AND c.created <= ?`
		args = append(args, opts.DateTo)
	}
	query += ` ORDER BY f.rank LIMIT ?`
	args = append(args, opts.MaxResults)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		if isFTSSyntaxErr(err) {
			d.log.Warn("fts query rejected", zap.String("match", match), zap.Error(err))
			return []SearchResult{}, nil
		}
		return nil, model.StorageError("searching chats", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r        SearchResult
			tagsJSON string
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.ProjectID, &tagsJSON, &r.FilePath, &r.Snippet, &r.Score); err != nil {
			return nil, model.StorageError("searching chats", err)
		}
		// Tag filter applies in Go; tags are a JSON array column.
		if len(opts.Tags) > 0 && !anyTagMatch(unmarshalTags(tagsJSON), opts.Tags) {
			continue
		}
		r.Kind = KindChat
		results = append(results, r)
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, rows.Err()
}

// QueryUnified runs the per-kind full-text match independently, normalizes
// each kind's rank onto [0,1], merges, sorts by normalized score descending
// with deterministic tie-breaks (kind priority, then id), and truncates to
// maxResults. Passing no kinds searches all three.
func (d *DB) QueryUnified(text string, kinds []Kind, maxResults int) ([]SearchResult, error) {
	match := buildMatch(text, false)
	if match == "" {
		return []SearchResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	if len(kinds) == 0 {
		kinds = Kinds
	}

	var merged []SearchResult
	for _, kind := range kinds {
		if !ValidKind(kind) {
			return nil, model.ValidationError("unknown record kind %q", kind)
		}
		hits, err := d.searchKind(kind, match, maxResults)
		if err != nil {
			return nil, err
		}
		normalizeScores(hits)
		merged = append(merged, hits...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if pi, pj := kindPriority(merged[i].Kind), kindPriority(merged[j].Kind); pi != pj {
			return pi < pj
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	if merged == nil {
		merged = []SearchResult{}
	}
	return merged, nil
}

func kindPriority(k Kind) int {
	switch k {
	case KindChat:
		return 0
	case KindFile:
		return 1
	default:
		return 2
	}
}

// searchKind runs one kind's FTS query, best rank first.
func (d *DB) searchKind(kind Kind, match string, limit int) ([]SearchResult, error) {
	var (
		query string
		op    string
	)
	switch kind {
	case KindChat:
		op = "searching chats"
		query = `
			SELECT f.chat_id, c.title, c.project_id, c.file_path,
			       snippet(chats_fts, -1, '**', '**', '...', 16) AS snip,
			       f.rank AS score
			FROM chats_fts f
			JOIN chats c ON c.id = f.chat_id
			WHERE chats_fts MATCH ?
			ORDER BY f.rank LIMIT ?`
	case KindFile:
		op = "searching source files"
		query = `
			SELECT f.file_id, s.filename, s.project_id, s.file_path,
			       snippet(source_files_fts, -1, '**', '**', '...', 16) AS snip,
			       f.rank AS score
			FROM source_files_fts f
			JOIN source_files s ON s.id = f.file_id
			WHERE source_files_fts MATCH ?
			ORDER BY f.rank LIMIT ?`
	case KindInsight:
		op = "searching insights"
		query = `
			SELECT f.insight_id, substr(i.content, 1, 60), i.project_id, '',
			       snippet(insights_fts, -1, '**', '**', '...', 16) AS snip,
			       f.rank AS score
			FROM insights_fts f
			JOIN insights i ON i.id = f.insight_id
			WHERE insights_fts MATCH ? AND i.status = 'active'
			ORDER BY f.rank LIMIT ?`
	}

	rows, err := d.conn.Query(query, match, limit)
	if err != nil {
		if isFTSSyntaxErr(err) {
			return nil, nil
		}
		return nil, model.StorageError(op, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		r := SearchResult{Kind: kind}
		if err := rows.Scan(&r.ID, &r.Title, &r.ProjectID, &r.FilePath, &r.Snippet, &r.Score); err != nil {
			return nil, model.StorageError(op, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// normalizeScores maps one kind's bm25 ranks (negative, lower is better)
// onto [0,1] via min-max, making scores comparable across kinds. A lone hit
// scores 1.
func normalizeScores(hits []SearchResult) {
	if len(hits) == 0 {
		return
	}
	best, worst := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < best {
			best = h.Score
		}
		if h.Score > worst {
			worst = h.Score
		}
	}
	if worst == best {
		for i := range hits {
			hits[i].Score = 1
		}
		return
	}
	span := worst - best
	for i := range hits {
		hits[i].Score = (worst - hits[i].Score) / span
	}
}

func anyTagMatch(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if set[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

// isFTSSyntaxErr reports whether err is FTS5 rejecting the MATCH
// expression rather than a storage failure.
func isFTSSyntaxErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") ||
		strings.Contains(msg, "malformed MATCH expression") ||
		strings.Contains(msg, "unknown special query")
}
