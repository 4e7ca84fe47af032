package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anticlaw/internal/config"
	"anticlaw/internal/meta"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the knowledge base directory, config and stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if _, err := os.Stat(config.Path(a.cfg.Home)); err == nil {
			fmt.Println("Already initialized at", a.cfg.Home)
			return nil
		}
		if err := config.Save(a.cfg); err != nil {
			return err
		}

		// Opening the stores creates their schemas.
		g, err := a.openGraph()
		if err != nil {
			return err
		}
		g.Close()
		m, err := a.openMeta()
		if err != nil {
			return err
		}
		m.Close()

		fmt.Println("Initialized knowledge base at", a.cfg.Home)
		fmt.Println("Config:", config.Path(a.cfg.Home))
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count [kind]",
	Short: "Count indexed records (chat, file, insight, or all)",
	Args:  cobra.MaximumNArgs(1),
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

		kinds := meta.Kinds
		if len(args) == 1 {
			kinds = []meta.Kind{meta.Kind(args[0])}
		}
		for _, k := range kinds {
			n, err := m.Count(k)
			if err != nil {
				return err
			}
			fmt.Printf("%-8s %d\n", k, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, countCmd)
}
