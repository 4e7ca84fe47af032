package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"anticlaw/internal/scan"
	"anticlaw/internal/watch"
)

var (
	scanProject string
	scanWatch   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Index source files under a directory; --watch keeps it in sync",
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

		scanner := scan.New(m, scan.Options{
			ProjectID:   scanProject,
			MaxFileSize: int64(a.cfg.Scan.MaxFileSizeKB) * 1024,
			Exclude:     a.cfg.Scan.Exclude,
		}, a.log)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := scanner.ScanDir(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d file(s), %d unchanged, %d skipped\n",
			res.Indexed, res.Unchanged, res.Skipped)

		if !scanWatch {
			return nil
		}
		fmt.Println("Watching for changes (Ctrl-C to stop)...")
		w := watch.New(scanner, 0, a.log)
		if err := w.Run(ctx, args[0]); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanProject, "project", "p", "", "Project id for indexed files")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Keep watching after the initial scan")

	rootCmd.AddCommand(scanCmd)
}
