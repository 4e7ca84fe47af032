package meta

import (
	"path/filepath"
	"testing"
	"time"

	"anticlaw/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "meta.db"), nil)
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func chatWith(id, title, content string) model.ChatRecord {
	return model.ChatRecord{
		ID:      id,
		Title:   title,
		Created: time.Now().UTC(),
		Updated: time.Now().UTC(),
		Status:  model.StatusActive,
		Messages: []model.ChatMessage{
			{Role: "human", Content: content},
		},
	}
}

func insightWith(id, content string) model.Insight {
	ins := model.Insight{ID: id, Content: content}
	ins.Normalize()
	return ins
}

func fileWith(id, name, content string) model.SourceFileRecord {
	return model.SourceFileRecord{
		ID:        id,
		FilePath:  "/src/" + name,
		Filename:  name,
		Extension: filepath.Ext(name),
		Language:  "go",
		Size:      int64(len(content)),
		Hash:      id + "-hash",
		IndexedAt: time.Now().UTC(),
		Content:   content,
	}
}

func seedAllKinds(t *testing.T, d *DB) {
	t.Helper()
	if err := d.IndexChat(chatWith("chat-1", "Auth discussion", "we rotate the JWT signing key weekly")); err != nil {
		t.Fatalf("indexing chat: %v", err)
	}
	if err := d.IndexSourceFile(fileWith("file-1", "auth.go", "// JWT verification\nfunc verify(token string) error { return nil }")); err != nil {
		t.Fatalf("indexing file: %v", err)
	}
	if err := d.IndexInsight(insightWith("ins-1", "JWT expiry must stay under one hour")); err != nil {
		t.Fatalf("indexing insight: %v", err)
	}
}

func TestQueryUnified_AllKinds(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)

	hits, err := d.QueryUnified("JWT", nil, 10)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected one hit per kind, got %d", len(hits))
	}
	byKind := map[Kind]bool{}
	for _, h := range hits {
		byKind[h.Kind] = true
		if h.Score != 1 {
			t.Errorf("lone hit per kind should normalize to 1, got %f for %s", h.Score, h.Kind)
		}
	}
	for _, k := range Kinds {
		if !byKind[k] {
			t.Errorf("missing kind %s in results", k)
		}
	}
}

func TestQueryUnified_TieBrokenByKindPriority(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)

	hits, err := d.QueryUnified("JWT", nil, 10)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	want := []Kind{KindChat, KindFile, KindInsight}
	for i, k := range want {
		if hits[i].Kind != k {
			t.Errorf("position %d: got %s, want %s", i, hits[i].Kind, k)
		}
	}
}

func TestQueryUnified_KindSubset(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)

	hits, err := d.QueryUnified("JWT", []Kind{KindInsight}, 10)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if len(hits) != 1 || hits[0].Kind != KindInsight {
		t.Fatalf("expected only the insight hit, got %v", hits)
	}
}

func TestQueryUnified_UnknownKind(t *testing.T) {
	d := newTestDB(t)
	_, err := d.QueryUnified("JWT", []Kind{Kind("video")}, 10)
	if err == nil {
		t.Fatal("expected validation error for unknown kind")
	}
}

func TestQueryUnified_PurgedInsightExcluded(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)
	if _, err := d.DeleteInsight("ins-1"); err != nil {
		t.Fatalf("purging insight: %v", err)
	}

	hits, err := d.QueryUnified("JWT", []Kind{KindInsight}, 10)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("purged insight should not match, got %v", hits)
	}
}

func TestQueryUnified_EmptyQuery(t *testing.T) {
	d := newTestDB(t)
	hits, err := d.QueryUnified("   ", nil, 10)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil result, got %v", hits)
	}
}

func TestQueryUnified_Truncation(t *testing.T) {
	d := newTestDB(t)
	for _, id := range []string{"m1", "m2", "m3"} {
		if err := d.IndexInsight(insightWith(id, "caching strategy for the render pipeline "+id)); err != nil {
			t.Fatalf("indexing: %v", err)
		}
	}
	hits, err := d.QueryUnified("caching", nil, 2)
	if err != nil {
		t.Fatalf("unified query: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected truncation to 2, got %d", len(hits))
	}
}

func TestQuery_ChatOnly(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)

	hits, err := d.Query("JWT", QueryOptions{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "chat-1" {
		t.Fatalf("expected the chat hit only, got %v", hits)
	}
	if hits[0].Kind != KindChat {
		t.Errorf("kind: got %s, want chat", hits[0].Kind)
	}
	if hits[0].Snippet == "" {
		t.Error("expected a snippet")
	}
}

func TestQuery_ExactPhraseOrderSensitive(t *testing.T) {
	d := newTestDB(t)
	if err := d.IndexChat(chatWith("c1", "Tokens", "we rotate JWT tokens nightly")); err != nil {
		t.Fatalf("indexing: %v", err)
	}

	hits, err := d.Query("JWT tokens", QueryOptions{Exact: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("in-order phrase should match, got %d hits", len(hits))
	}

	hits, err = d.Query("tokens JWT", QueryOptions{Exact: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("reversed phrase should not match exactly, got %d hits", len(hits))
	}

	hits, err = d.Query("tokens JWT", QueryOptions{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("default mode is order-insensitive, got %d hits", len(hits))
	}
}

func TestQuery_TagFilter(t *testing.T) {
	d := newTestDB(t)
	c := chatWith("c1", "Tagged", "deployment pipeline notes")
	c.Tags = []string{"infra", "ci"}
	if err := d.IndexChat(c); err != nil {
		t.Fatalf("indexing: %v", err)
	}

	hits, err := d.Query("pipeline", QueryOptions{Tags: []string{"infra"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("matching tag should pass the filter, got %d", len(hits))
	}

	hits, err = d.Query("pipeline", QueryOptions{Tags: []string{"frontend"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("non-matching tag should filter the hit, got %d", len(hits))
	}
}

func TestQuery_ProjectFilter(t *testing.T) {
	d := newTestDB(t)
	a := chatWith("c1", "A", "shared keyword alphabetize")
	a.ProjectID = "p1"
	b := chatWith("c2", "B", "shared keyword alphabetize")
	b.ProjectID = "p2"
	for _, c := range []model.ChatRecord{a, b} {
		if err := d.IndexChat(c); err != nil {
			t.Fatalf("indexing: %v", err)
		}
	}

	hits, err := d.Query("alphabetize", QueryOptions{Project: "p1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "c1" {
		t.Errorf("project filter failed: %v", hits)
	}
}

func TestQuery_OperatorInputNeutralized(t *testing.T) {
	d := newTestDB(t)
	seedAllKinds(t, d)
	// Raw FTS5 operators in user text must not cause query errors.
	hits, err := d.Query(`JWT AND NOT ("`, QueryOptions{})
	if err != nil {
		t.Fatalf("query with operator text: %v", err)
	}
	_ = hits
}

func TestBuildMatch(t *testing.T) {
	cases := []struct {
		text  string
		exact bool
		want  string
	}{
		{"jwt tokens", false, `"jwt" "tokens"`},
		{"jwt tokens", true, `"jwt tokens"`},
		{`say "hi"`, true, `"say ""hi"""`},
		{"  ", false, ""},
	}
	for _, c := range cases {
		if got := buildMatch(c.text, c.exact); got != c.want {
			t.Errorf("buildMatch(%q, %v) = %q, want %q", c.text, c.exact, got, c.want)
		}
	}
}

func TestNormalizeScores_MinMax(t *testing.T) {
	hits := []SearchResult{
		{ID: "a", Score: -9},
		{ID: "b", Score: -5},
		{ID: "c", Score: -1},
	}
	normalizeScores(hits)
	if hits[0].Score != 1 {
		t.Errorf("best rank should score 1, got %f", hits[0].Score)
	}
	if hits[2].Score != 0 {
		t.Errorf("worst rank should score 0, got %f", hits[2].Score)
	}
	if hits[1].Score != 0.5 {
		t.Errorf("midpoint should score 0.5, got %f", hits[1].Score)
	}
}

func TestNormalizeScores_EqualRanks(t *testing.T) {
	hits := []SearchResult{{Score: -3}, {Score: -3}}
	normalizeScores(hits)
	for _, h := range hits {
		if h.Score != 1 {
			t.Errorf("equal ranks should all score 1, got %f", h.Score)
		}
	}
}
