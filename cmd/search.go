package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"anticlaw/internal/meta"
	"anticlaw/internal/model"
)

var (
	searchUnified    bool
	searchExact      bool
	searchProject    string
	searchTags       string
	searchImportance string
	searchKinds      string
	searchFrom       string
	searchTo         string
	searchLimit      int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over chats, or all kinds with --unified",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		m, err := a.openMeta()
		if err != nil {
			return err
		}
		defer m.Close()

		limit := searchLimit
		if limit <= 0 {
			limit = a.cfg.Search.MaxResults
		}

		var hits []meta.SearchResult
		if searchUnified {
			hits, err = m.QueryUnified(args[0], parseKinds(searchKinds), limit)
		} else {
			hits, err = m.Query(args[0], meta.QueryOptions{
				Project:    searchProject,
				Tags:       splitTags(searchTags),
				Importance: model.Importance(searchImportance),
				DateFrom:   searchFrom,
				DateTo:     searchTo,
				MaxResults: limit,
				Exact:      searchExact,
			})
		}
		if err != nil {
			return err
		}

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}
		if len(hits) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, h := range hits {
			title := h.Title
			if title == "" {
				title = shortID(h.ID)
			}
			fmt.Printf("%.2f  %-7s %s\n", h.Score, h.Kind, title)
			if h.Snippet != "" {
				fmt.Printf("      %s\n", h.Snippet)
			}
		}
		return nil
	},
}

// parseKinds turns "chat,insight" into kinds for QueryUnified; empty means
// all kinds.
func parseKinds(s string) []meta.Kind {
	if s == "" {
		return nil
	}
	var kinds []meta.Kind
	for _, part := range strings.Split(s, ",") {
		if k := meta.Kind(strings.TrimSpace(part)); k != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func init() {
	searchCmd.Flags().BoolVarP(&searchUnified, "unified", "u", false, "Search chats, files and insights together")
	searchCmd.Flags().BoolVarP(&searchExact, "exact", "e", false, "Exact phrase match (chat search only)")
	searchCmd.Flags().StringVarP(&searchProject, "project", "p", "", "Filter by project (chat search only)")
	searchCmd.Flags().StringVarP(&searchTags, "tag", "t", "", "Comma-separated tags, any match (chat search only)")
	searchCmd.Flags().StringVarP(&searchImportance, "importance", "i", "", "Filter by importance (chat search only)")
	searchCmd.Flags().StringVar(&searchKinds, "type", "", "Kinds for --unified: chat,file,insight")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Created on/after, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Created on/before, YYYY-MM-DD")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "JSON output")

	rootCmd.AddCommand(searchCmd)
}
