package graph

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"anticlaw/internal/model"
)

func edgesOf(t *testing.T, s *Store, id string, et model.EdgeType) []model.Edge {
	t.Helper()
	edges, err := s.Edges(id, et)
	if err != nil {
		t.Fatalf("reading edges: %v", err)
	}
	return edges
}

func TestInferTemporal_DirectionAndWeight(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "older", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "newer", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(10 * time.Minute)})

	edges := edgesOf(t, s, "newer", model.EdgeTemporal)
	if len(edges) != 1 {
		t.Fatalf("expected 1 temporal edge, got %d", len(edges))
	}
	e := edges[0]
	if e.SourceID != "newer" || e.TargetID != "older" {
		t.Errorf("direction: got %s -> %s, want newer -> older", e.SourceID, e.TargetID)
	}
	// 10 of 30 minutes elapsed: weight 1 - 600/1800.
	want := 1.0 - 600.0/1800.0
	if math.Abs(e.Weight-want) > 0.001 {
		t.Errorf("weight: got %f, want %f", e.Weight, want)
	}
}

func TestInferTemporal_OutsideWindow(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "w1", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "w2", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(45 * time.Minute)})

	if edges := edgesOf(t, s, "w2", model.EdgeTemporal); len(edges) != 0 {
		t.Errorf("expected no temporal edge across 45 minutes, got %d", len(edges))
	}
}

func TestInferTemporal_ProjectScoped(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "pa", Content: "alpha reactor output stable", ProjectID: "p1", Created: t0})
	mustInsert(t, s, model.Insight{ID: "pb", Content: "bravo compiles quickly", ProjectID: "p2", Created: t0.Add(5 * time.Minute)})

	if edges := edgesOf(t, s, "pb", model.EdgeTemporal); len(edges) != 0 {
		t.Errorf("expected no cross-project edge, got %d", len(edges))
	}
}

func TestInferEntity_JaccardWeightAndMetadata(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	// Far apart in time so only the entity pass links them.
	mustInsert(t, s, model.Insight{ID: "e1", Content: "AuthService owns the login flow", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "e2", Content: "AuthService and TokenCache disagree", ProjectID: "p", Created: t0.Add(time.Hour)})

	edges := edgesOf(t, s, "e2", model.EdgeEntity)
	if len(edges) != 1 {
		t.Fatalf("expected 1 entity edge, got %d", len(edges))
	}
	e := edges[0]
	// Shared {AuthService} over union {AuthService, TokenCache}: 1/2.
	if math.Abs(e.Weight-0.5) > 0.001 {
		t.Errorf("weight: got %f, want 0.5", e.Weight)
	}
	if !strings.Contains(e.Metadata["entities"], "AuthService") {
		t.Errorf("metadata should name the shared entity, got %v", e.Metadata)
	}
}

func TestInferEntity_NoSharedEntities(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "x1", Content: "AuthService owns the login flow", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "x2", Content: "plain words without identifiers", ProjectID: "p", Created: t0.Add(time.Hour)})

	if edges := edgesOf(t, s, "x2", model.EdgeEntity); len(edges) != 0 {
		t.Errorf("expected no entity edge, got %d", len(edges))
	}
}

func TestInferCausal_LinksMostRecentPrior(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "c1", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "c2", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(time.Hour)})
	mustInsert(t, s, model.Insight{ID: "c3", Content: "dropped the flag because builds broke", ProjectID: "p", Created: t0.Add(2 * time.Hour)})

	edges := edgesOf(t, s, "c3", model.EdgeCausal)
	if len(edges) != 1 {
		t.Fatalf("expected 1 causal edge, got %d", len(edges))
	}
	e := edges[0]
	if e.SourceID != "c3" || e.TargetID != "c2" {
		t.Errorf("causal edge: got %s -> %s, want c3 -> c2", e.SourceID, e.TargetID)
	}
	if math.Abs(e.Weight-0.7) > 0.001 {
		t.Errorf("weight: got %f, want 0.7", e.Weight)
	}
}

func TestInferCausal_NoPriorNode(t *testing.T) {
	s := newTestStore(t)
	mustInsert(t, s, model.Insight{ID: "lone", Content: "rewrote it because the old one drifted", ProjectID: "p"})
	if edges := edgesOf(t, s, "lone", model.EdgeCausal); len(edges) != 0 {
		t.Errorf("expected no causal edge without a prior node, got %d", len(edges))
	}
}

func TestInferCausal_NoCausalLanguage(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "q1", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "q2", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(time.Hour)})
	if edges := edgesOf(t, s, "q2", model.EdgeCausal); len(edges) != 0 {
		t.Errorf("expected no causal edge, got %d", len(edges))
	}
}

func TestInferSemantic_TopK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SemanticTopK = 1
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"), cfg, nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer s.Close()

	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "s1", Content: "golang compiler optimizations overview", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "s2", Content: "golang compiler internals", ProjectID: "p", Created: t0.Add(time.Hour)})
	mustInsert(t, s, model.Insight{ID: "s3", Content: "weekend sourdough baking notes", ProjectID: "p", Created: t0.Add(2 * time.Hour)})
	mustInsert(t, s, model.Insight{ID: "snew", Content: "golang compiler optimizations guide", ProjectID: "p", Created: t0.Add(3 * time.Hour)})

	edges := edgesOf(t, s, "snew", model.EdgeSemantic)
	if len(edges) != 1 {
		t.Fatalf("expected exactly top-1 semantic edge, got %d", len(edges))
	}
	if edges[0].TargetID != "s1" {
		t.Errorf("expected strongest match s1, got %s", edges[0].TargetID)
	}
}

func TestInferSemantic_NoOverlap(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "z1", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "z2", Content: "weekend sourdough baking notes", ProjectID: "p", Created: t0.Add(time.Hour)})
	if edges := edgesOf(t, s, "z2", model.EdgeSemantic); len(edges) != 0 {
		t.Errorf("expected no semantic edge, got %d", len(edges))
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		a, b []string
		want float64
	}{
		{nil, nil, 0},
		{[]string{"x"}, nil, 0},
		{[]string{"x"}, []string{"x"}, 1},
		{[]string{"x", "y"}, []string{"y", "z"}, 1.0 / 3.0},
		{[]string{"x", "x", "y"}, []string{"y"}, 0.5},
	}
	for _, c := range cases {
		if got := jaccard(c.a, c.b); math.Abs(got-c.want) > 0.0001 {
			t.Errorf("jaccard(%v, %v) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestContentWords_FiltersStopwordsAndShortTokens(t *testing.T) {
	got := contentWords("The cache is hot, so it hit a peak of 99 requests")
	for _, w := range got {
		if len(w) < 3 {
			t.Errorf("short token leaked: %q", w)
		}
		if stopwords[w] {
			t.Errorf("stopword leaked: %q", w)
		}
	}
	found := false
	for _, w := range got {
		if w == "cache" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in %v", "cache", got)
	}
}

func TestMirrorEdgeSuppressed(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "m1", Content: "AuthService owns the login flow", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "m2", Content: "AuthService rejects stale cookies", ProjectID: "p", Created: t0.Add(time.Hour)})
	// Re-inserting the older node must not mint a reverse entity edge.
	mustInsert(t, s, model.Insight{ID: "m1", Content: "AuthService owns the login flow", ProjectID: "p", Created: t0})

	edges := edgesOf(t, s, "m1", model.EdgeEntity)
	if len(edges) != 1 {
		t.Fatalf("expected a single entity edge between the pair, got %d", len(edges))
	}
	if edges[0].SourceID != "m2" || edges[0].TargetID != "m1" {
		t.Errorf("surviving edge should be m2 -> m1, got %s -> %s", edges[0].SourceID, edges[0].TargetID)
	}
}
