package graph

import (
	"errors"
	"testing"
	"time"

	"anticlaw/internal/model"
)

// chainStore builds a -> b -> c with temporal edges only: node contents
// share no words or identifiers, and the 20-minute spacing keeps adjacent
// pairs inside the window while a and c fall outside it.
func chainStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	t0 := base(t)
	mustInsert(t, s, model.Insight{ID: "a", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "b", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(20 * time.Minute)})
	mustInsert(t, s, model.Insight{ID: "c", Content: "charlie deployment finished", ProjectID: "p", Created: t0.Add(40 * time.Minute)})
	return s
}

func TestTraverse_Chain(t *testing.T) {
	s := chainStore(t)
	hops, err := s.Traverse("a", "", 2)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d", len(hops))
	}
	if hops[0].Node.ID != "b" || hops[0].Depth != 1 {
		t.Errorf("first hop: got %s at depth %d, want b at 1", hops[0].Node.ID, hops[0].Depth)
	}
	if hops[1].Node.ID != "c" || hops[1].Depth != 2 {
		t.Errorf("second hop: got %s at depth %d, want c at 2", hops[1].Node.ID, hops[1].Depth)
	}
}

func TestTraverse_DepthBound(t *testing.T) {
	s := chainStore(t)
	hops, err := s.Traverse("a", "", 1)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 1 || hops[0].Node.ID != "b" {
		t.Errorf("depth 1 should reach only b, got %v", hops)
	}
}

func TestTraverse_ZeroDepth(t *testing.T) {
	s := chainStore(t)
	hops, err := s.Traverse("a", "", 0)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("expected empty result at depth 0, got %d hops", len(hops))
	}
}

func TestTraverse_UnknownStart(t *testing.T) {
	s := chainStore(t)
	hops, err := s.Traverse("nope", "", 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("unknown start should yield empty result, got %d", len(hops))
	}
}

func TestTraverse_InvalidEdgeType(t *testing.T) {
	s := chainStore(t)
	_, err := s.Traverse("a", model.EdgeType("psychic"), 2)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTraverse_EdgeTypeFilter(t *testing.T) {
	s := chainStore(t)
	hops, err := s.Traverse("a", model.EdgeCausal, 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("no causal edges exist, got %d hops", len(hops))
	}
	hops, err = s.Traverse("a", model.EdgeTemporal, 2)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 2 {
		t.Errorf("temporal filter should keep the chain, got %d hops", len(hops))
	}
}

func TestTraverse_CycleTerminates(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	// 10-minute spacing puts all three pairs inside the temporal window,
	// forming a triangle.
	mustInsert(t, s, model.Insight{ID: "a", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "b", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(10 * time.Minute)})
	mustInsert(t, s, model.Insight{ID: "c", Content: "charlie deployment finished", ProjectID: "p", Created: t0.Add(20 * time.Minute)})

	hops, err := s.Traverse("a", "", 10)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	seen := map[string]int{}
	for _, h := range hops {
		seen[h.Node.ID]++
	}
	if seen["a"] != 0 {
		t.Errorf("start node should not be emitted, got %d times", seen["a"])
	}
	if seen["b"] == 0 || seen["c"] == 0 {
		t.Errorf("both neighbors should be reached: %v", seen)
	}
}

func TestTraverse_SkipsInactiveNodes(t *testing.T) {
	s := chainStore(t)
	if err := s.SetStatus("b", model.StatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	hops, err := s.Traverse("a", "", 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	// b is the only path to c, so archiving it cuts the chain.
	if len(hops) != 0 {
		t.Errorf("expected empty traversal through archived node, got %v", hops)
	}
}

func TestTraverse_InactiveStart(t *testing.T) {
	s := chainStore(t)
	if err := s.SetStatus("a", model.StatusArchived); err != nil {
		t.Fatalf("archive: %v", err)
	}
	hops, err := s.Traverse("a", "", 3)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 0 {
		t.Errorf("archived start should yield empty result, got %d", len(hops))
	}
}

func TestTraverse_OrderedByDepthThenWeight(t *testing.T) {
	s := newTestStore(t)
	t0 := base(t)
	// Two neighbors of hub at different temporal distances: the closer one
	// carries the heavier edge and must sort first within depth 1.
	mustInsert(t, s, model.Insight{ID: "far", Content: "alpha reactor output stable", ProjectID: "p", Created: t0})
	mustInsert(t, s, model.Insight{ID: "near", Content: "bravo compiles quickly", ProjectID: "p", Created: t0.Add(24 * time.Minute)})
	mustInsert(t, s, model.Insight{ID: "hub", Content: "charlie deployment finished", ProjectID: "p", Created: t0.Add(28 * time.Minute)})

	hops, err := s.Traverse("hub", model.EdgeTemporal, 1)
	if err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if len(hops) != 2 {
		t.Fatalf("expected 2 hops, got %d", len(hops))
	}
	if hops[0].Node.ID != "near" || hops[1].Node.ID != "far" {
		t.Errorf("expected near before far, got %s, %s", hops[0].Node.ID, hops[1].Node.ID)
	}
	if hops[0].Weight <= hops[1].Weight {
		t.Errorf("weights not descending: %f, %f", hops[0].Weight, hops[1].Weight)
	}
}
