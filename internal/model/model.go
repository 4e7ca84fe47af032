// Package model holds the core data types shared by the graph store,
// the search index and their callers.
package model

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Status is the lifecycle state of an insight. Transitions are monotonic:
// active -> archived -> purged, never backwards.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusPurged   Status = "purged"
)

// statusRank orders statuses for the monotonic transition check.
func statusRank(s Status) int {
	switch s {
	case StatusActive:
		return 0
	case StatusArchived:
		return 1
	case StatusPurged:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a status change from s to next is allowed.
// Same-status transitions are allowed (no-op for callers).
func (s Status) CanTransition(next Status) bool {
	from, to := statusRank(s), statusRank(next)
	return from >= 0 && to >= 0 && to >= from
}

// Importance grades how much an insight matters.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// Category classifies what kind of knowledge an insight captures.
type Category string

const (
	CategoryDecision   Category = "decision"
	CategoryFinding    Category = "finding"
	CategoryPreference Category = "preference"
	CategoryFact       Category = "fact"
	CategoryQuestion   Category = "question"
)

// EdgeType is the relationship class of a graph edge.
type EdgeType string

const (
	EdgeTemporal EdgeType = "temporal"
	EdgeEntity   EdgeType = "entity"
	EdgeSemantic EdgeType = "semantic"
	EdgeCausal   EdgeType = "causal"
)

// EdgeTypes lists all edge types in canonical order.
var EdgeTypes = []EdgeType{EdgeTemporal, EdgeEntity, EdgeSemantic, EdgeCausal}

// ValidEdgeType reports whether t names a known edge type.
func ValidEdgeType(t EdgeType) bool {
	for _, et := range EdgeTypes {
		if t == et {
			return true
		}
	}
	return false
}

// Insight is a saved atomic unit of knowledge, stored as a graph node.
// Content is never mutated after creation; edits produce a new insight.
type Insight struct {
	ID         string     `json:"id"`
	Content    string     `json:"content" validate:"required"`
	Category   Category   `json:"category" validate:"oneof=decision finding preference fact question"`
	Importance Importance `json:"importance" validate:"oneof=low medium high critical"`
	Tags       []string   `json:"tags"`
	ProjectID  string     `json:"project_id"`
	ChatID     string     `json:"chat_id,omitempty"`
	Created    time.Time  `json:"created"`
	Updated    time.Time  `json:"updated"`
	Status     Status     `json:"status" validate:"oneof=active archived purged"`
}

// Normalize fills in defaults for zero-valued fields.
func (i *Insight) Normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Category == "" {
		i.Category = CategoryFact
	}
	if i.Importance == "" {
		i.Importance = ImportanceMedium
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	now := time.Now().UTC()
	if i.Created.IsZero() {
		i.Created = now
	}
	if i.Updated.IsZero() {
		i.Updated = i.Created
	}
}

var validate = validator.New()

// Validate checks field constraints after Normalize.
func (i *Insight) Validate() error {
	if err := validate.Struct(i); err != nil {
		return ValidationError("invalid insight: %v", err)
	}
	return nil
}

// Edge is a directed, weighted, typed relationship between two insights.
// At most one edge exists per (source, target, type) triple.
type Edge struct {
	ID       string            `json:"id"`
	SourceID string            `json:"source_id"`
	TargetID string            `json:"target_id"`
	EdgeType EdgeType          `json:"edge_type"`
	Weight   float64           `json:"weight"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Created  time.Time         `json:"created"`
}

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "human" or "assistant"
	Content string `json:"content"`
}

// ChatRecord is a conversation as the search index sees it, supplied by
// the import/storage collaborator.
type ChatRecord struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	ProjectID    string        `json:"project_id"`
	Provider     string        `json:"provider"`
	RemoteID     string        `json:"remote_id"`
	Created      time.Time     `json:"created"`
	Updated      time.Time     `json:"updated"`
	Tags         []string      `json:"tags"`
	Summary      string        `json:"summary"`
	Importance   Importance    `json:"importance"`
	Status       Status        `json:"status"`
	FilePath     string        `json:"file_path"`
	TokenCount   int           `json:"token_count"`
	MessageCount int           `json:"message_count"`
	Messages     []ChatMessage `json:"messages,omitempty"`
}

// Text returns the concatenated message text used for full-text indexing.
func (c *ChatRecord) Text() string {
	if len(c.Messages) == 0 {
		return ""
	}
	out := make([]byte, 0, 256)
	for i, m := range c.Messages {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, m.Content...)
	}
	return string(out)
}

// SourceFileRecord is a scanned source file as the search index sees it,
// supplied by the file-scanning collaborator.
type SourceFileRecord struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Filename  string    `json:"filename"`
	Extension string    `json:"extension"`
	Language  string    `json:"language"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	IndexedAt time.Time `json:"indexed_at"`
	ProjectID string    `json:"project_id"`
	Content   string    `json:"content"`
}

// Project is a grouping of chats and insights.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Tags        []string  `json:"tags"`
	Status      Status    `json:"status"`
}

// TimeLayout is the canonical on-disk timestamp format (UTC, second
// precision). String ordering matches chronological ordering.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders t in the canonical on-disk format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a canonical timestamp, returning the zero time on failure.
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
