package graph

import (
	"encoding/json"
	"sort"
	"strings"

	"anticlaw/internal/model"
)

// EntityCount is an entity with the number of entity edges mentioning it.
type EntityCount struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

// Stats summarizes the graph: node/edge counts, edges by type, the most
// connected entities, and the per-project node distribution.
type Stats struct {
	Nodes       int                    `json:"nodes"`
	Edges       int                    `json:"edges"`
	EdgesByType map[model.EdgeType]int `json:"edges_by_type"`
	TopEntities []EntityCount          `json:"top_entities"`
	Projects    map[string]int         `json:"projects"`
}

// Stats computes summary statistics over active nodes and all edges.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{
		EdgesByType: make(map[model.EdgeType]int),
		Projects:    make(map[string]int),
	}

	var err error
	if st.Nodes, err = s.NodeCount(); err != nil {
		return nil, err
	}
	if st.Edges, err = s.EdgeCount(""); err != nil {
		return nil, err
	}
	for _, et := range model.EdgeTypes {
		if st.EdgesByType[et], err = s.EdgeCount(et); err != nil {
			return nil, err
		}
	}

	// Entity frequency from entity-edge metadata.
	rows, err := s.conn.Query(`SELECT metadata FROM edges WHERE edge_type = 'entity'`)
	if err != nil {
		return nil, model.StorageError("reading entity edges", err)
	}
	defer rows.Close()
	freq := make(map[string]int)
	for rows.Next() {
		var metaJSON string
		if err := rows.Scan(&metaJSON); err != nil {
			return nil, model.StorageError("reading entity edges", err)
		}
		var meta map[string]string
		if json.Unmarshal([]byte(metaJSON), &meta) != nil {
			continue
		}
		for _, e := range strings.Split(meta["entities"], ",") {
			if e != "" {
				freq[e]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError("reading entity edges", err)
	}
	for e, c := range freq {
		st.TopEntities = append(st.TopEntities, EntityCount{Entity: e, Count: c})
	}
	sort.Slice(st.TopEntities, func(i, j int) bool {
		if st.TopEntities[i].Count != st.TopEntities[j].Count {
			return st.TopEntities[i].Count > st.TopEntities[j].Count
		}
		return st.TopEntities[i].Entity < st.TopEntities[j].Entity
	})
	if len(st.TopEntities) > 10 {
		st.TopEntities = st.TopEntities[:10]
	}

	projRows, err := s.conn.Query(`
		SELECT project_id, COUNT(*) FROM nodes
		WHERE status = 'active' AND project_id != ''
		GROUP BY project_id`)
	if err != nil {
		return nil, model.StorageError("reading project distribution", err)
	}
	defer projRows.Close()
	for projRows.Next() {
		var (
			project string
			count   int
		)
		if err := projRows.Scan(&project, &count); err != nil {
			return nil, model.StorageError("reading project distribution", err)
		}
		st.Projects[project] = count
	}
	return st, projRows.Err()
}
