package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatsProject string

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List indexed conversations, newest first",
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

		chats, err := m.ListChats(chatsProject)
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			fmt.Println("No chats indexed.")
			return nil
		}
		for _, c := range chats {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			tags := ""
			if len(c.Tags) > 0 {
				tags = " [" + strings.Join(c.Tags, ",") + "]"
			}
			fmt.Printf("%s  %s  %s (%d msgs)%s\n",
				c.Created.Format("2006-01-02"), shortID(c.ID), title, c.MessageCount, tags)
		}
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List known projects",
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

		projects, err := m.ListProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			desc := p.Description
			if desc != "" {
				desc = "  " + desc
			}
			fmt.Printf("%-20s %s%s\n", p.Name, p.ID, desc)
		}
		return nil
	},
}

func init() {
	chatsCmd.Flags().StringVarP(&chatsProject, "project", "p", "", "Filter by project")
	rootCmd.AddCommand(chatsCmd, projectsCmd)
}
