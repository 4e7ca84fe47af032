package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anticlaw/internal/model"
)

var (
	saveCategory   string
	saveImportance string
	saveTags       string
	saveProject    string
	saveChatID     string

	insightsProject    string
	insightsLimit      int
	insightsJSON       bool
	insightsCategory   string
	insightsImportance string
	insightsQuery      string

	showJSON bool
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Create and manage insights",
}

var saveCmd = &cobra.Command{
	Use:   "save <content>",
	Short: "Save an insight; graph edges are inferred on insert",
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
		m, err := a.openMeta()
		if err != nil {
			return err
		}
		defer m.Close()

		ins := model.Insight{
			Content:    args[0],
			Category:   model.Category(saveCategory),
			Importance: model.Importance(saveImportance),
			ProjectID:  saveProject,
			ChatID:     saveChatID,
			Tags:       splitTags(saveTags),
		}
		id, err := g.Insert(ins)
		if err != nil {
			return err
		}
		saved, err := g.Get(id)
		if err != nil {
			return err
		}
		if err := m.IndexInsight(*saved); err != nil {
			return err
		}

		linked, err := g.Edges(id, "")
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%d edge(s) inferred)\n", shortID(id), len(linked))
		return nil
	},
}

var insightsCmd = &cobra.Command{
	Use:   "list",
	Short: "List active insights, newest first",
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

		list, err := g.List(insightsProject, insightsLimit)
		if err != nil {
			return err
		}
		// Category, importance and substring filters stay client-side;
		// the store only narrows by project.
		filtered := list[:0]
		for _, ins := range list {
			if insightsCategory != "" && ins.Category != model.Category(insightsCategory) {
				continue
			}
			if insightsImportance != "" && ins.Importance != model.Importance(insightsImportance) {
				continue
			}
			if insightsQuery != "" && !strings.Contains(strings.ToLower(ins.Content), strings.ToLower(insightsQuery)) {
				continue
			}
			filtered = append(filtered, ins)
		}

		if insightsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(filtered)
		}
		if len(filtered) == 0 {
			fmt.Println("No insights.")
			return nil
		}
		for _, ins := range filtered {
			printInsightLine(ins)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id-or-prefix>",
	Short: "Show one insight and its edges",
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

		ins, err := g.Resolve(args[0])
		if err != nil {
			return err
		}
		if ins == nil {
			return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, args[0])
		}
		edges, err := g.Edges(ins.ID, "")
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Insight model.Insight `json:"insight"`
				Edges   []model.Edge  `json:"edges"`
			}{*ins, edges})
		}

		fmt.Printf("ID:         %s\n", ins.ID)
		fmt.Printf("Category:   %s\n", ins.Category)
		fmt.Printf("Importance: %s\n", ins.Importance)
		fmt.Printf("Status:     %s\n", ins.Status)
		if ins.ProjectID != "" {
			fmt.Printf("Project:    %s\n", ins.ProjectID)
		}
		if len(ins.Tags) > 0 {
			fmt.Printf("Tags:       %s\n", strings.Join(ins.Tags, ", "))
		}
		fmt.Printf("Created:    %s\n", model.FormatTime(ins.Created))
		fmt.Printf("\n%s\n", ins.Content)
		if len(edges) > 0 {
			fmt.Printf("\nEdges (%d):\n", len(edges))
			for _, e := range edges {
				other := e.TargetID
				arrow := "->"
				if other == ins.ID {
					other = e.SourceID
					arrow = "<-"
				}
				fmt.Printf("  %s %s %s  w=%.2f\n", e.EdgeType, arrow, shortID(other), e.Weight)
			}
		}
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <id-or-prefix>",
	Short: "Archive an insight (excluded from listing and traversal)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], model.StatusArchived)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <id-or-prefix>",
	Short: "Purge an insight (terminal; content retained on disk)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], model.StatusPurged)
	},
}

var retagCmd = &cobra.Command{
	Use:   "retag <id-or-prefix> <tags>",
	Short: "Replace an insight's tags (comma-separated)",
	Args:  cobra.ExactArgs(2),
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
		m, err := a.openMeta()
		if err != nil {
			return err
		}
		defer m.Close()

		ins, err := g.Resolve(args[0])
		if err != nil {
			return err
		}
		if ins == nil {
			return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, args[0])
		}
		tags := splitTags(args[1])
		if err := g.Retag(ins.ID, tags); err != nil {
			return err
		}
		ins.Tags = tags
		if err := m.IndexInsight(*ins); err != nil {
			return err
		}
		fmt.Printf("Retagged %s: %s\n", shortID(ins.ID), strings.Join(tags, ", "))
		return nil
	},
}

var recatCmd = &cobra.Command{
	Use:   "recat <id-or-prefix> <category>",
	Short: "Change an insight's category",
	Args:  cobra.ExactArgs(2),
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
		m, err := a.openMeta()
		if err != nil {
			return err
		}
		defer m.Close()

		ins, err := g.Resolve(args[0])
		if err != nil {
			return err
		}
		if ins == nil {
			return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, args[0])
		}
		category := model.Category(args[1])
		if err := g.Recategorize(ins.ID, category); err != nil {
			return err
		}
		ins.Category = category
		if err := m.IndexInsight(*ins); err != nil {
			return err
		}
		fmt.Printf("%s is now a %s\n", shortID(ins.ID), category)
		return nil
	},
}

// setStatus resolves and transitions one insight, mirroring the change into
// the search index.
func setStatus(ref string, status model.Status) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	g, err := a.openGraph()
	if err != nil {
		return err
	}
	defer g.Close()
	m, err := a.openMeta()
	if err != nil {
		return err
	}
	defer m.Close()

	ins, err := g.Resolve(ref)
	if err != nil {
		return err
	}
	if ins == nil {
		return fmt.Errorf("%w: no unique insight matches %q", model.ErrNotFound, ref)
	}
	if err := g.SetStatus(ins.ID, status); err != nil {
		return err
	}
	if status == model.StatusPurged {
		if _, err := m.DeleteInsight(ins.ID); err != nil {
			return err
		}
	} else {
		ins.Status = status
		if err := m.IndexInsight(*ins); err != nil {
			return err
		}
	}
	fmt.Printf("%s is now %s\n", shortID(ins.ID), status)
	return nil
}

func printInsightLine(ins model.Insight) {
	content := ins.Content
	if len(content) > 70 {
		content = content[:67] + "..."
	}
	tags := ""
	if len(ins.Tags) > 0 {
		tags = " [" + strings.Join(ins.Tags, ",") + "]"
	}
	fmt.Printf("%s  %-10s %-8s %s%s\n", shortID(ins.ID), ins.Category, ins.Importance, content, tags)
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func init() {
	saveCmd.Flags().StringVarP(&saveCategory, "category", "c", "", "decision|finding|preference|fact|question (default fact)")
	saveCmd.Flags().StringVarP(&saveImportance, "importance", "i", "", "low|medium|high|critical (default medium)")
	saveCmd.Flags().StringVarP(&saveTags, "tags", "t", "", "Comma-separated tags")
	saveCmd.Flags().StringVarP(&saveProject, "project", "p", "", "Project id")
	saveCmd.Flags().StringVar(&saveChatID, "chat", "", "Originating chat id")

	insightsCmd.Flags().StringVarP(&insightsProject, "project", "p", "", "Filter by project")
	insightsCmd.Flags().IntVarP(&insightsLimit, "limit", "n", 20, "Maximum results")
	insightsCmd.Flags().StringVarP(&insightsCategory, "category", "c", "", "Filter by category")
	insightsCmd.Flags().StringVarP(&insightsImportance, "importance", "i", "", "Filter by importance")
	insightsCmd.Flags().StringVarP(&insightsQuery, "query", "q", "", "Substring filter on content")
	insightsCmd.Flags().BoolVar(&insightsJSON, "json", false, "JSON output")

	showCmd.Flags().BoolVar(&showJSON, "json", false, "JSON output")

	insightCmd.AddCommand(saveCmd, insightsCmd, showCmd, archiveCmd, purgeCmd, retagCmd, recatCmd)
	rootCmd.AddCommand(insightCmd)
}
