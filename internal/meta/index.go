package meta

import (
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"anticlaw/internal/model"
	"anticlaw/internal/sqlitedb"
)

// IndexChat inserts or fully replaces a conversation. The textual
// projection (FTS row) is rebuilt, not merged.
func (d *DB) IndexChat(chat model.ChatRecord) error {
	if chat.ID == "" {
		return model.ValidationError("chat record missing id")
	}
	content := chat.Text()
	tagsJSON := marshalTags(chat.Tags)
	messageCount := chat.MessageCount
	if messageCount == 0 {
		messageCount = len(chat.Messages)
	}
	importance := chat.Importance
	if importance == "" {
		importance = model.ImportanceMedium
	}
	status := chat.Status
	if status == "" {
		status = model.StatusActive
	}

	return sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning chat index", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO chats
			(id, title, project_id, provider, remote_id, created, updated,
			 tags, summary, importance, status, file_path, token_count,
			 message_count, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chat.ID, chat.Title, chat.ProjectID, chat.Provider, chat.RemoteID,
			model.FormatTime(chat.Created), model.FormatTime(chat.Updated),
			tagsJSON, chat.Summary, importance, status, chat.FilePath,
			chat.TokenCount, messageCount, content)
		if err != nil {
			return model.StorageError("writing chat row", err)
		}
		if _, err := tx.Exec(`DELETE FROM chats_fts WHERE chat_id = ?`, chat.ID); err != nil {
			return model.StorageError("clearing chat fts row", err)
		}
		_, err = tx.Exec(`
			INSERT INTO chats_fts (chat_id, title, summary, content, tags)
			VALUES (?, ?, ?, ?, ?)`,
			chat.ID, chat.Title, chat.Summary, content, tagsJSON)
		if err != nil {
			return model.StorageError("writing chat fts row", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing chat index", err)
		}
		d.log.Debug("indexed chat", zap.String("id", chat.ID), zap.String("project", chat.ProjectID))
		return nil
	})
}

// IndexInsight inserts or fully replaces the searchable projection of an
// insight.
func (d *DB) IndexInsight(ins model.Insight) error {
	ins.Normalize()
	if err := ins.Validate(); err != nil {
		return err
	}
	tagsJSON := marshalTags(ins.Tags)
	var chatID any
	if ins.ChatID != "" {
		chatID = ins.ChatID
	}

	return sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning insight index", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO insights
			(id, content, category, importance, tags, project_id, chat_id,
			 created, updated, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ins.ID, ins.Content, ins.Category, ins.Importance, tagsJSON,
			ins.ProjectID, chatID, model.FormatTime(ins.Created),
			model.FormatTime(ins.Updated), ins.Status)
		if err != nil {
			return model.StorageError("writing insight row", err)
		}
		if _, err := tx.Exec(`DELETE FROM insights_fts WHERE insight_id = ?`, ins.ID); err != nil {
			return model.StorageError("clearing insight fts row", err)
		}
		_, err = tx.Exec(`
			INSERT INTO insights_fts (insight_id, content, tags)
			VALUES (?, ?, ?)`,
			ins.ID, ins.Content, tagsJSON)
		if err != nil {
			return model.StorageError("writing insight fts row", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing insight index", err)
		}
		return nil
	})
}

// IndexSourceFile inserts or fully replaces a scanned source file.
// Hash-based skip-on-unchanged is the scanner's responsibility.
func (d *DB) IndexSourceFile(doc model.SourceFileRecord) error {
	if doc.ID == "" {
		return model.ValidationError("source file record missing id")
	}
	return sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning file index", err)
		}
		defer tx.Rollback()

		// file_path is UNIQUE; replace any row previously holding it,
		// together with its FTS projection.
		var staleID string
		err = tx.QueryRow(`SELECT id FROM source_files WHERE file_path = ? AND id != ?`,
			doc.FilePath, doc.ID).Scan(&staleID)
		if err != nil && err != sql.ErrNoRows {
			return model.StorageError("finding stale path row", err)
		}
		if staleID != "" {
			if _, err := tx.Exec(`DELETE FROM source_files_fts WHERE file_id = ?`, staleID); err != nil {
				return model.StorageError("clearing stale fts row", err)
			}
			if _, err := tx.Exec(`DELETE FROM source_files WHERE id = ?`, staleID); err != nil {
				return model.StorageError("clearing stale path row", err)
			}
		}
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO source_files
			(id, file_path, filename, extension, language, size, hash,
			 indexed_at, project_id, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.FilePath, doc.Filename, doc.Extension, doc.Language,
			doc.Size, doc.Hash, model.FormatTime(doc.IndexedAt), doc.ProjectID,
			doc.Content)
		if err != nil {
			return model.StorageError("writing file row", err)
		}
		if _, err := tx.Exec(`DELETE FROM source_files_fts WHERE file_id = ?`, doc.ID); err != nil {
			return model.StorageError("clearing file fts row", err)
		}
		_, err = tx.Exec(`
			INSERT INTO source_files_fts (file_id, filename, content)
			VALUES (?, ?, ?)`,
			doc.ID, doc.Filename, doc.Content)
		if err != nil {
			return model.StorageError("writing file fts row", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing file index", err)
		}
		return nil
	})
}

// IndexProject inserts or replaces a project row.
func (d *DB) IndexProject(p model.Project, dirPath string) error {
	if p.ID == "" {
		return model.ValidationError("project missing id")
	}
	status := p.Status
	if status == "" {
		status = model.StatusActive
	}
	return sqlitedb.Retry(func() error {
		_, err := d.conn.Exec(`
			INSERT OR REPLACE INTO projects
			(id, name, description, created, updated, tags, status, dir_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, model.FormatTime(p.Created),
			model.FormatTime(p.Updated), marshalTags(p.Tags), status, dirPath)
		if err != nil {
			return model.StorageError("writing project row", err)
		}
		return nil
	})
}

// GetChat returns a chat record by id, or nil if unknown.
func (d *DB) GetChat(id string) (*model.ChatRecord, error) {
	row := d.conn.QueryRow(`
		SELECT id, title, project_id, provider, remote_id, created, updated,
		       tags, summary, importance, status, file_path, token_count,
		       message_count
		FROM chats WHERE id = ?`, id)
	var (
		c                          model.ChatRecord
		tagsJSON, created, updated string
	)
	err := row.Scan(&c.ID, &c.Title, &c.ProjectID, &c.Provider, &c.RemoteID,
		&created, &updated, &tagsJSON, &c.Summary, &c.Importance, &c.Status,
		&c.FilePath, &c.TokenCount, &c.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.StorageError("reading chat", err)
	}
	c.Tags = unmarshalTags(tagsJSON)
	c.Created = model.ParseTime(created)
	c.Updated = model.ParseTime(updated)
	return &c, nil
}

// GetInsight returns an insight projection by id, or nil if unknown.
func (d *DB) GetInsight(id string) (*model.Insight, error) {
	row := d.conn.QueryRow(`
		SELECT id, content, category, importance, tags, project_id, chat_id,
		       created, updated, status
		FROM insights WHERE id = ?`, id)
	var (
		n                          model.Insight
		tagsJSON, created, updated string
		chatID                     sql.NullString
	)
	err := row.Scan(&n.ID, &n.Content, &n.Category, &n.Importance, &tagsJSON,
		&n.ProjectID, &chatID, &created, &updated, &n.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.StorageError("reading insight", err)
	}
	if chatID.Valid {
		n.ChatID = chatID.String
	}
	n.Tags = unmarshalTags(tagsJSON)
	n.Created = model.ParseTime(created)
	n.Updated = model.ParseTime(updated)
	return &n, nil
}

// GetSourceFile returns the indexed record for a file path, or nil if the
// path is not indexed. Scanners use the stored hash to skip unchanged files.
func (d *DB) GetSourceFile(filePath string) (*model.SourceFileRecord, error) {
	row := d.conn.QueryRow(`
		SELECT id, file_path, filename, extension, language, size, hash,
		       indexed_at, project_id, content
		FROM source_files WHERE file_path = ?`, filePath)
	var (
		f         model.SourceFileRecord
		indexedAt string
	)
	err := row.Scan(&f.ID, &f.FilePath, &f.Filename, &f.Extension, &f.Language,
		&f.Size, &f.Hash, &indexedAt, &f.ProjectID, &f.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.StorageError("reading source file", err)
	}
	f.IndexedAt = model.ParseTime(indexedAt)
	return &f, nil
}

// ListChats lists chats, newest first, optionally scoped to a project.
func (d *DB) ListChats(projectID string) ([]model.ChatRecord, error) {
	query := `
		SELECT id, title, project_id, provider, remote_id, created, updated,
		       tags, summary, importance, status, file_path, token_count,
		       message_count
		FROM chats`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created DESC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, model.StorageError("listing chats", err)
	}
	defer rows.Close()

	var chats []model.ChatRecord
	for rows.Next() {
		var (
			c                          model.ChatRecord
			tagsJSON, created, updated string
		)
		err := rows.Scan(&c.ID, &c.Title, &c.ProjectID, &c.Provider, &c.RemoteID,
			&created, &updated, &tagsJSON, &c.Summary, &c.Importance, &c.Status,
			&c.FilePath, &c.TokenCount, &c.MessageCount)
		if err != nil {
			return nil, model.StorageError("listing chats", err)
		}
		c.Tags = unmarshalTags(tagsJSON)
		c.Created = model.ParseTime(created)
		c.Updated = model.ParseTime(updated)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// InsightFilter narrows ListInsights.
type InsightFilter struct {
	Query      string
	Project    string
	Category   model.Category
	Importance model.Importance
	MaxResults int
}

// ListInsights lists active insight projections, newest first.
func (d *DB) ListInsights(f InsightFilter) ([]model.Insight, error) {
	if f.MaxResults <= 0 {
		f.MaxResults = 20
	}
	query := `
		SELECT id, content, category, importance, tags, project_id, chat_id,
		       created, updated, status
		FROM insights WHERE status = 'active'`
	args := []any{}
	if f.Query != "" {
		query += ` AND content LIKE ?`
		args = append(args, "%"+f.Query+"%")
	}
	if f.Project != "" {
		query += ` AND project_id = ?`
		args = append(args, f.Project)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Importance != "" {
		query += ` AND importance = ?`
		args = append(args, f.Importance)
	}
	query += ` ORDER BY created DESC LIMIT ?`
	args = append(args, f.MaxResults)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, model.StorageError("listing insights", err)
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var (
			n                          model.Insight
			tagsJSON, created, updated string
			chatID                     sql.NullString
		)
		err := rows.Scan(&n.ID, &n.Content, &n.Category, &n.Importance, &tagsJSON,
			&n.ProjectID, &chatID, &created, &updated, &n.Status)
		if err != nil {
			return nil, model.StorageError("listing insights", err)
		}
		if chatID.Valid {
			n.ChatID = chatID.String
		}
		n.Tags = unmarshalTags(tagsJSON)
		n.Created = model.ParseTime(created)
		n.Updated = model.ParseTime(updated)
		insights = append(insights, n)
	}
	return insights, rows.Err()
}

// ListProjects lists all project rows ordered by name.
func (d *DB) ListProjects() ([]model.Project, error) {
	rows, err := d.conn.Query(`
		SELECT id, name, description, created, updated, tags, status
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, model.StorageError("listing projects", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var (
			p                          model.Project
			tagsJSON, created, updated string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &created, &updated, &tagsJSON, &p.Status); err != nil {
			return nil, model.StorageError("listing projects", err)
		}
		p.Tags = unmarshalTags(tagsJSON)
		p.Created = model.ParseTime(created)
		p.Updated = model.ParseTime(updated)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateChatTags replaces a chat's tags and rebuilds its FTS row.
func (d *DB) UpdateChatTags(chatID string, tags []string) error {
	tagsJSON := marshalTags(tags)
	return sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning tag update", err)
		}
		defer tx.Rollback()

		res, err := tx.Exec(`UPDATE chats SET tags = ? WHERE id = ?`, tagsJSON, chatID)
		if err != nil {
			return model.StorageError("updating chat tags", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		var title, summary, content string
		err = tx.QueryRow(`SELECT title, summary, content FROM chats WHERE id = ?`, chatID).
			Scan(&title, &summary, &content)
		if err != nil {
			return model.StorageError("rereading chat", err)
		}
		if _, err := tx.Exec(`DELETE FROM chats_fts WHERE chat_id = ?`, chatID); err != nil {
			return model.StorageError("clearing chat fts row", err)
		}
		_, err = tx.Exec(`
			INSERT INTO chats_fts (chat_id, title, summary, content, tags)
			VALUES (?, ?, ?, ?, ?)`,
			chatID, title, summary, content, tagsJSON)
		if err != nil {
			return model.StorageError("writing chat fts row", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing tag update", err)
		}
		return nil
	})
}

// UpdateChatPath records a chat's new file path and project after a move.
func (d *DB) UpdateChatPath(chatID, filePath, projectID string) error {
	return sqlitedb.Retry(func() error {
		_, err := d.conn.Exec(`UPDATE chats SET file_path = ?, project_id = ? WHERE id = ?`,
			filePath, projectID, chatID)
		if err != nil {
			return model.StorageError("updating chat path", err)
		}
		return nil
	})
}

// DeleteInsight tombstones an active insight (status -> purged). Returns
// false if no active insight had that id.
func (d *DB) DeleteInsight(id string) (bool, error) {
	var found bool
	err := sqlitedb.Retry(func() error {
		res, err := d.conn.Exec(`
			UPDATE insights SET status = 'purged', updated = ?
			WHERE id = ? AND status = 'active'`,
			model.FormatTime(time.Now()), id)
		if err != nil {
			return model.StorageError("purging insight", err)
		}
		n, _ := res.RowsAffected()
		found = n > 0
		return nil
	})
	return found, err
}

// DeleteSourceFile removes a file from the index by path. Returns false if
// the path was not indexed.
func (d *DB) DeleteSourceFile(filePath string) (bool, error) {
	var found bool
	err := sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning file delete", err)
		}
		defer tx.Rollback()

		var id string
		err = tx.QueryRow(`SELECT id FROM source_files WHERE file_path = ?`, filePath).Scan(&id)
		if err == sql.ErrNoRows {
			found = false
			return nil
		}
		if err != nil {
			return model.StorageError("finding file row", err)
		}
		if _, err := tx.Exec(`DELETE FROM source_files_fts WHERE file_id = ?`, id); err != nil {
			return model.StorageError("deleting file fts row", err)
		}
		if _, err := tx.Exec(`DELETE FROM source_files WHERE id = ?`, id); err != nil {
			return model.StorageError("deleting file row", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing file delete", err)
		}
		found = true
		return nil
	})
	return found, err
}

// ClearSourceFiles removes all indexed source files.
func (d *DB) ClearSourceFiles() error {
	return sqlitedb.Retry(func() error {
		tx, err := d.conn.Begin()
		if err != nil {
			return model.StorageError("beginning clear", err)
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`DELETE FROM source_files_fts`); err != nil {
			return model.StorageError("clearing file fts", err)
		}
		if _, err := tx.Exec(`DELETE FROM source_files`); err != nil {
			return model.StorageError("clearing files", err)
		}
		if err := tx.Commit(); err != nil {
			return model.StorageError("committing clear", err)
		}
		return nil
	})
}

func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalTags(tagsJSON string) []string {
	if tagsJSON == "" {
		return nil
	}
	var tags []string
	if json.Unmarshal([]byte(tagsJSON), &tags) != nil {
		return nil
	}
	return tags
}
