package graph

import (
	"sort"

	"anticlaw/internal/model"
)

// Hop is one traversal result: a reached node plus the edge that reached it.
type Hop struct {
	Node     model.Insight  `json:"node"`
	EdgeType model.EdgeType `json:"edge_type"`
	Weight   float64        `json:"weight"`
	Depth    int            `json:"depth"`
}

// Traverse expands breadth-first over the undirected view of the graph from
// startID, bounded to maxDepth hops and optionally restricted to one edge
// type. Only active nodes are emitted.
//
// Cycle safety: a node may be re-emitted through a different edge type or at
// a strictly smaller depth than previously recorded, but is never
// re-expanded at an equal-or-greater depth through the same edge type. This
// terminates on cyclic graphs while keeping legitimate multi-path results.
//
// Results are ordered by ascending depth, then descending edge weight, then
// node id. maxDepth <= 0 and unknown or non-active start nodes yield an
// empty result.
func (s *Store) Traverse(startID string, edgeType model.EdgeType, maxDepth int) ([]Hop, error) {
	results := []Hop{}
	if maxDepth <= 0 {
		return results, nil
	}
	if edgeType != "" && !model.ValidEdgeType(edgeType) {
		return nil, model.ValidationError("unknown edge type %q", edgeType)
	}
	start, err := s.Get(startID)
	if err != nil {
		return nil, err
	}
	if start == nil || start.Status != model.StatusActive {
		return results, nil
	}

	// seen records the smallest depth each (node, edge type) pair was
	// reached at. The start node is blocked at depth 0 for every type.
	seen := make(map[string]map[model.EdgeType]int)
	seen[startID] = map[model.EdgeType]int{}
	for _, et := range model.EdgeTypes {
		seen[startID][et] = 0
	}

	type frontierEntry struct {
		id    string
		depth int
	}
	frontier := []frontierEntry{{id: startID, depth: 0}}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		if current.depth >= maxDepth {
			continue
		}

		edges, err := s.Edges(current.id, edgeType)
		if err != nil {
			return nil, err
		}
		depth := current.depth + 1
		for _, e := range edges {
			otherID := e.TargetID
			if otherID == current.id {
				otherID = e.SourceID
			}
			if prev, ok := seen[otherID][e.EdgeType]; ok && depth >= prev {
				continue
			}
			node, err := s.Get(otherID)
			if err != nil {
				return nil, err
			}
			if node == nil || node.Status != model.StatusActive {
				continue
			}
			if seen[otherID] == nil {
				seen[otherID] = make(map[model.EdgeType]int)
			}
			seen[otherID][e.EdgeType] = depth
			results = append(results, Hop{
				Node:     *node,
				EdgeType: e.EdgeType,
				Weight:   e.Weight,
				Depth:    depth,
			})
			frontier = append(frontier, frontierEntry{id: otherID, depth: depth})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		if results[i].Weight != results[j].Weight {
			return results[i].Weight > results[j].Weight
		}
		return results[i].Node.ID < results[j].Node.ID
	})
	return results, nil
}
