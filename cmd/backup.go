package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive and restore the knowledge base",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a new backup archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		p, err := a.registry().Backup(a.cfg.Backup.Provider)
		if err != nil {
			return err
		}
		path, err := p.Backup(cmd.Context(), a.cfg.Home)
		if err != nil {
			return err
		}
		fmt.Println("Backup written to", path)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Unpack a stored backup over the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		p, err := a.registry().Backup(a.cfg.Backup.Provider)
		if err != nil {
			return err
		}
		if err := p.Restore(cmd.Context(), a.cfg.Home, args[0]); err != nil {
			return err
		}
		fmt.Println("Restored", args[0])
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		p, err := a.registry().Backup(a.cfg.Backup.Provider)
		if err != nil {
			return err
		}
		backups, err := p.List(a.cfg.Home)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("%s  %8d bytes  %s\n",
				b.Created.Format("2006-01-02 15:04:05"), b.Size, b.Name)
		}
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupCreateCmd, backupRestoreCmd, backupListCmd)
	rootCmd.AddCommand(backupCmd)
}
