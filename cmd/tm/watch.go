package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/daemon"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the reconciliation daemon",
	Long: `Watch the task document and keep it reconciled with the remote
repository. Reconciles immediately on document changes (debounced) and
on a fixed interval to pick up remote-side changes. Stops cleanly on
SIGINT/SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd)
		defer e.Close()

		logger := logging.New(logging.Output(e.cfg.Log), "daemon")
		d, err := daemon.NewWithConfig(e.coord, e.cfg.DocumentPath, &daemon.Config{
			SyncInterval:     e.cfg.Sync.Interval,
			DebounceInterval: e.cfg.Sync.Debounce,
			Logger:           logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching %s (interval %v)\n", e.cfg.DocumentPath, e.cfg.Sync.Interval)
		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
