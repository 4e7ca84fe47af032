package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"anticlaw/internal/llm"
)

var askSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from indexed chats, files and insights",
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

		p, err := a.llm()
		if err != nil {
			return err
		}

		answerer := llm.NewAnswerer(m, p, a.cfg.Search.MaxResults)
		answer, hits, err := answerer.Ask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(answer)
		if askSources && len(hits) > 0 {
			fmt.Println("\nSources:")
			for i, h := range hits {
				title := h.Title
				if title == "" {
					title = shortID(h.ID)
				}
				fmt.Printf("  [%d] (%s) %s\n", i+1, h.Kind, title)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&askSources, "sources", "s", false, "Show retrieved sources")
	rootCmd.AddCommand(askCmd)
}
