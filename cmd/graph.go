package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"anticlaw/internal/model"
)

var (
	relatedDepth int
	relatedType  string
	relatedJSON  bool

	timelineProject string
	timelineLimit   int

	statsJSON bool

	analyzeJSON         bool
	analyzeTopN         int
	analyzeHubThreshold int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Explore the inferred insight graph",
}

var relatedCmd = &cobra.Command{
	Use:   "related <id-or-prefix>",
	Short: "Breadth-first walk of the insight graph from a starting node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		start, err := g.Resolve(args[0])
		if err != nil {
			return err
		}
		if start == nil {
			return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, args[0])
		}
		hops, err := g.Traverse(start.ID, model.EdgeType(relatedType), relatedDepth)
		if err != nil {
			return err
		}

		if relatedJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hops)
		}
		if len(hops) == 0 {
			fmt.Println("No connected insights.")
			return nil
		}
		for _, h := range hops {
			content := h.Node.Content
			if len(content) > 60 {
				content = content[:57] + "..."
			}
			fmt.Printf("d=%d  %-8s w=%.2f  %s  %s\n",
				h.Depth, h.EdgeType, h.Weight, shortID(h.Node.ID), content)
		}
		return nil
	},
}

var whyCmd = &cobra.Command{
	Use:   "why <id-or-prefix>",
	Short: "Show the causal chain leading to an insight",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		start, err := g.Resolve(args[0])
		if err != nil {
			return err
		}
		if start == nil {
			return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, args[0])
		}
		hops, err := g.Traverse(start.ID, model.EdgeCausal, 5)
		if err != nil {
			return err
		}
		if len(hops) == 0 {
			fmt.Println("No causal links.")
			return nil
		}
		fmt.Printf("%s  %s\n", shortID(start.ID), start.Content)
		for _, h := range hops {
			indent := ""
			for i := 0; i < h.Depth; i++ {
				indent += "  "
			}
			fmt.Printf("%s<- %s  %s\n", indent, shortID(h.Node.ID), h.Node.Content)
		}
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Insights in chronological order with temporal links",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		list, err := g.List(timelineProject, timelineLimit)
		if err != nil {
			return err
		}
		// List returns newest first; the timeline reads oldest first.
		sort.Slice(list, func(i, j int) bool { return list[i].Created.Before(list[j].Created) })

		for _, ins := range list {
			linked, err := g.Edges(ins.ID, model.EdgeTemporal)
			if err != nil {
				return err
			}
			content := ins.Content
			if len(content) > 60 {
				content = content[:57] + "..."
			}
			fmt.Printf("%s  %s  %s (%d temporal)\n",
				model.FormatTime(ins.Created), shortID(ins.ID), content, len(linked))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Graph summary: counts, edge mix, top entities, projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		st, err := g.Stats()
		if err != nil {
			return err
		}
		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Printf("Nodes: %d   Edges: %d\n", st.Nodes, st.Edges)
		for _, et := range model.EdgeTypes {
			if n := st.EdgesByType[et]; n > 0 {
				fmt.Printf("  %-9s %d\n", et, n)
			}
		}
		if len(st.TopEntities) > 0 {
			fmt.Println("Top entities:")
			for _, e := range st.TopEntities {
				fmt.Printf("  %-30s %d\n", e.Entity, e.Count)
			}
		}
		if len(st.Projects) > 0 {
			names := make([]string, 0, len(st.Projects))
			for name := range st.Projects {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Println("Projects:")
			for _, name := range names {
				fmt.Printf("  %-30s %d\n", name, st.Projects[name])
			}
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze graph topology: components, orphans, hubs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		report, err := g.Topology(analyzeHubThreshold, analyzeTopN)
		if err != nil {
			return err
		}
		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		fmt.Printf("Nodes: %d   Edges: %d\n", report.TotalNodes, report.TotalEdges)
		fmt.Printf("Components: %d (largest %d, smallest %d)\n",
			report.NumComponents, report.LargestComponent, report.SmallestComponent)
		fmt.Printf("Orphans: %d\n", report.OrphanCount)
		for _, id := range report.OrphanIDs {
			fmt.Printf("  %s\n", shortID(id))
		}
		fmt.Println("Degree distribution:")
		for _, b := range report.DegreeHistogram {
			fmt.Printf("  %-6s %d\n", b.Label, b.Count)
		}
		if len(report.Hubs) > 0 {
			fmt.Println("Hubs:")
			for _, h := range report.Hubs {
				fmt.Printf("  %s  deg=%-3d %s\n", shortID(h.ID), h.Degree, h.Excerpt)
			}
		}
		return nil
	},
}

func init() {
	relatedCmd.Flags().IntVarP(&relatedDepth, "depth", "d", 2, "Maximum hops")
	relatedCmd.Flags().StringVarP(&relatedType, "type", "t", "", "Restrict to one edge type")
	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "JSON output")

	timelineCmd.Flags().StringVarP(&timelineProject, "project", "p", "", "Filter by project")
	timelineCmd.Flags().IntVarP(&timelineLimit, "limit", "n", 50, "Maximum insights")

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "JSON output")

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON output")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 10, "Hubs and entities shown")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 5, "Minimum degree for a hub")

	graphCmd.AddCommand(relatedCmd, whyCmd, timelineCmd, statsCmd, analyzeCmd)
	rootCmd.AddCommand(graphCmd)
}
