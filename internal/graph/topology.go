package graph

import (
	"sort"

	"anticlaw/internal/model"
)

// HubInsight is an insight with high edge connectivity.
type HubInsight struct {
	ID      string `json:"id"`
	Excerpt string `json:"excerpt"`
	Degree  int    `json:"degree"`
}

// DegreeBucket is one bucket in the degree histogram.
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport describes the shape of the inferred graph: connected
// components, orphan insights and connectivity hubs.
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []string       `json:"orphan_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubInsight   `json:"hubs"`
}

// Topology analyzes the active graph: components via union-find, orphans,
// degree distribution, and hubs above hubThreshold (capped at topN).
func (s *Store) Topology(hubThreshold, topN int) (*TopologyReport, error) {
	nodes, err := s.List("", 1<<20)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return &TopologyReport{DegreeHistogram: defaultHistogram()}, nil
	}

	active := make(map[string]model.Insight, len(nodes))
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		active[n.ID] = n
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	rows, err := s.conn.Query(`SELECT source_id, target_id FROM edges`)
	if err != nil {
		return nil, model.StorageError("reading edge endpoints", err)
	}
	defer rows.Close()

	degree := make(map[string]int, len(nodes))
	uf := newUnionFind(ids)
	edgeCount := 0
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, model.StorageError("reading edge endpoints", err)
		}
		// Edges touching non-active nodes are tombstoned here.
		if _, ok := active[src]; !ok {
			continue
		}
		if _, ok := active[tgt]; !ok {
			continue
		}
		degree[src]++
		degree[tgt]++
		uf.union(src, tgt)
		edgeCount++
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("reading edge endpoints", err)
	}

	components := uf.components()
	largest, smallest := 0, len(nodes)
	for _, c := range components {
		if len(c) > largest {
			largest = len(c)
		}
		if len(c) < smallest {
			smallest = len(c)
		}
	}

	var orphans []string
	buckets := [7]int{}
	var hubs []HubInsight
	for _, id := range ids {
		d := degree[id]
		buckets[degreeBucket(d)]++
		if d == 0 {
			orphans = append(orphans, id)
		}
		if d > hubThreshold {
			hubs = append(hubs, HubInsight{ID: id, Excerpt: excerpt(active[id].Content, 60), Degree: d})
		}
	}
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].ID < hubs[j].ID
	})
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	return &TopologyReport{
		TotalNodes:        len(nodes),
		TotalEdges:        edgeCount,
		NumComponents:     len(components),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		OrphanCount:       orphanCount,
		OrphanIDs:         orphans,
		DegreeHistogram:   histogram,
		Hubs:              hubs,
	}, nil
}

func excerpt(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
