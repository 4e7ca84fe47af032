package graph

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"anticlaw/internal/entities"
	"anticlaw/internal/model"
)

// candidate is a node in the bounded inference working set.
type candidate struct {
	insight  model.Insight
	entities []string
}

// inferEdges runs the four inference passes inside the insert transaction.
func (s *Store) inferEdges(tx *sql.Tx, ins model.Insight) error {
	cands, err := s.candidates(tx, ins)
	if err != nil {
		return err
	}

	newEntities := entities.Extract(ins.Content)

	if err := s.inferTemporal(tx, ins, cands); err != nil {
		return err
	}
	if err := s.inferEntity(tx, ins, newEntities, cands); err != nil {
		return err
	}
	if err := s.inferCausal(tx, ins); err != nil {
		return err
	}
	if err := s.inferSemantic(tx, ins, cands); err != nil {
		return err
	}
	return nil
}

// candidates loads the working set: active nodes in the same project
// created within the lookback window, newest first, capped. This bound
// keeps per-insert cost flat as history accumulates.
func (s *Store) candidates(tx *sql.Tx, ins model.Insight) ([]candidate, error) {
	horizon := ins.Created.Add(-s.cfg.CandidateLookback)
	rows, err := tx.Query(`
		SELECT `+nodeColumns+` FROM nodes
		WHERE id != ? AND status = 'active' AND project_id = ? AND created >= ?
		ORDER BY created DESC LIMIT ?`,
		ins.ID, ins.ProjectID, model.FormatTime(horizon), s.cfg.MaxCandidates)
	if err != nil {
		return nil, model.StorageError("loading inference candidates", err)
	}
	defer rows.Close()

	var cands []candidate
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, model.StorageError("loading inference candidates", err)
		}
		cands = append(cands, candidate{insight: n})
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("loading inference candidates", err)
	}
	s.log.Debug("inference working set", zap.String("id", ins.ID), zap.Int("candidates", len(cands)))
	return cands, nil
}

// inferTemporal links nodes created within the temporal window, directed
// from the newer to the older node, weighted by proximity.
func (s *Store) inferTemporal(tx *sql.Tx, ins model.Insight, cands []candidate) error {
	window := s.cfg.TemporalWindow
	for _, c := range cands {
		delta := ins.Created.Sub(c.insight.Created)
		if delta < 0 {
			delta = -delta
		}
		if delta >= window {
			continue
		}
		weight := clamp(1.0-delta.Seconds()/window.Seconds(), 0.05, 1.0)

		src, tgt := ins.ID, c.insight.ID
		if c.insight.Created.After(ins.Created) {
			src, tgt = c.insight.ID, ins.ID
		}
		if err := upsertEdge(tx, src, tgt, model.EdgeTemporal, weight, nil); err != nil {
			return err
		}
	}
	return nil
}

// inferEntity links nodes sharing extracted entities, weighted by Jaccard
// overlap of the two entity sets.
func (s *Store) inferEntity(tx *sql.Tx, ins model.Insight, newEntities []string, cands []candidate) error {
	if len(newEntities) == 0 {
		return nil
	}
	for i := range cands {
		cands[i].entities = entities.Extract(cands[i].insight.Content)
		shared := intersect(newEntities, cands[i].entities)
		if len(shared) == 0 {
			continue
		}
		weight := clamp(jaccard(newEntities, cands[i].entities), 0.1, 1.0)
		meta := map[string]string{"entities": strings.Join(shared, ",")}
		if err := upsertEdge(tx, ins.ID, cands[i].insight.ID, model.EdgeEntity, weight, meta); err != nil {
			return err
		}
	}
	return nil
}

// causalWeight is the fixed confidence assigned to inferred causal edges.
const causalWeight = 0.7

// inferCausal links a node containing causal language to the most recently
// created prior active node in the same project -- the node this one most
// plausibly explains. No prior node means no edge.
func (s *Store) inferCausal(tx *sql.Tx, ins model.Insight) error {
	if !entities.HasCausalLanguage(ins.Content) {
		return nil
	}
	var targetID string
	err := tx.QueryRow(`
		SELECT id FROM nodes
		WHERE id != ? AND status = 'active' AND project_id = ? AND created < ?
		ORDER BY created DESC, id LIMIT 1`,
		ins.ID, ins.ProjectID, model.FormatTime(ins.Created)).Scan(&targetID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return model.StorageError("finding causal target", err)
	}
	return upsertEdge(tx, ins.ID, targetID, model.EdgeCausal, causalWeight, nil)
}

// inferSemantic scores candidates by lexical similarity (tag overlap plus
// content bag-of-words overlap) and links the top-K, ties beyond K dropped
// deterministically by candidate id.
func (s *Store) inferSemantic(tx *sql.Tx, ins model.Insight, cands []candidate) error {
	type scored struct {
		id    string
		score float64
	}
	newWords := contentWords(ins.Content)

	var ranked []scored
	for _, c := range cands {
		score := semanticScore(ins.Tags, c.insight.Tags, newWords, contentWords(c.insight.Content))
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{id: c.insight.ID, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > s.cfg.SemanticTopK {
		ranked = ranked[:s.cfg.SemanticTopK]
	}
	for _, r := range ranked {
		if err := upsertEdge(tx, ins.ID, r.id, model.EdgeSemantic, clamp(r.score, 0.05, 1.0), nil); err != nil {
			return err
		}
	}
	return nil
}

// semanticScore is the documented lexical similarity heuristic: the mean of
// tag-set Jaccard and content bag-of-words Jaccard, in [0,1].
func semanticScore(tagsA, tagsB []string, wordsA, wordsB []string) float64 {
	return 0.5*jaccard(lowerAll(tagsA), lowerAll(tagsB)) + 0.5*jaccard(wordsA, wordsB)
}

// upsertEdge inserts or updates an edge for the (source, target, type)
// triple, recomputing weight and metadata. An existing reverse-direction
// edge of the same type suppresses a mirror edge.
func upsertEdge(tx *sql.Tx, src, tgt string, edgeType model.EdgeType, weight float64, meta map[string]string) error {
	var exists int
	err := tx.QueryRow(`
		SELECT 1 FROM edges WHERE source_id = ? AND target_id = ? AND edge_type = ?`,
		tgt, src, edgeType).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return model.StorageError("checking reverse edge", err)
	}

	metaJSON := "{}"
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return model.ValidationError("encoding edge metadata: %v", err)
		}
		metaJSON = string(b)
	}
	_, err = tx.Exec(`
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, edge_type) DO UPDATE SET
			weight = excluded.weight,
			metadata = excluded.metadata`,
		uuid.NewString(), src, tgt, edgeType, weight, metaJSON,
		model.FormatTime(time.Now()))
	if err != nil {
		return model.StorageError("writing edge", err)
	}
	return nil
}

// --- lexical helpers ---

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
	"was": true, "are": true, "we": true, "our": true, "not": true,
}

// contentWords tokenizes content into a lowercase bag of words, dropping
// stopwords and tokens shorter than three characters.
func contentWords(content string) []string {
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]bool)
	var words []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	var shared []string
	for _, s := range b {
		if set[s] {
			shared = append(shared, s)
			set[s] = false
		}
	}
	sort.Strings(shared)
	return shared
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
