package graph

import (
	"testing"
	"time"

	"anticlaw/internal/model"
)

func TestStats_CountsAndEntities(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "a", Content: "AuthService owns the login flow", ProjectID: "p1", Created: t0})
	mustInsert(t, s, model.Insight{ID: "b", Content: "AuthService rejects stale cookies", ProjectID: "p1", Created: t0.Add(time.Hour)})
	mustInsert(t, s, model.Insight{ID: "c", Content: "weekend sourdough baking notes", ProjectID: "p2", Created: t0})

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Nodes != 3 {
		t.Errorf("nodes: got %d, want 3", st.Nodes)
	}
	if st.EdgesByType[model.EdgeEntity] != 1 {
		t.Errorf("entity edges: got %d, want 1", st.EdgesByType[model.EdgeEntity])
	}
	if st.Projects["p1"] != 2 || st.Projects["p2"] != 1 {
		t.Errorf("project counts: %v", st.Projects)
	}
	found := false
	for _, e := range st.TopEntities {
		if e.Entity == "AuthService" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected AuthService among top entities: %v", st.TopEntities)
	}
}

func TestTopology_ComponentsAndOrphans(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	// a and b pair up temporally; lone stays isolated in another project.
	mustInsert(t, s, model.Insight{ID: "a", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "b", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(10 * time.Minute)})
	mustInsert(t, s, model.Insight{ID: "lone", Content: "weekend sourdough baking notes", ProjectID: "q", Created: t0})

	report, err := s.Topology(5, 10)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	if report.TotalNodes != 3 {
		t.Errorf("nodes: got %d, want 3", report.TotalNodes)
	}
	if report.NumComponents != 2 {
		t.Errorf("components: got %d, want 2", report.NumComponents)
	}
	if report.OrphanCount != 1 || len(report.OrphanIDs) != 1 || report.OrphanIDs[0] != "lone" {
		t.Errorf("orphans: %d %v", report.OrphanCount, report.OrphanIDs)
	}
	if report.LargestComponent != 2 || report.SmallestComponent != 1 {
		t.Errorf("component sizes: largest %d smallest %d", report.LargestComponent, report.SmallestComponent)
	}
}
