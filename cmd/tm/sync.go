package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the document with the remote repository",
	Long: `Run one reconciliation pass:
  1. Hash every task on both sides
  2. Push records changed only locally
  3. Pull records changed only remotely
  4. Flag records changed on both sides as conflicts`,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd)
		defer e.Close()

		start := time.Now()
		result, err := e.coord.SyncAll(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Unchanged: %d\n", result.Unchanged)
		fmt.Printf("   Pushed:    %d\n", result.Pushed)
		fmt.Printf("   Pulled:    %d\n", result.Pulled)
		fmt.Printf("   Conflicts: %d\n", result.Conflicts)
		if result.Conflicts > 0 {
			fmt.Printf("\nRun 'tm conflicts' to inspect, 'tm resolve' to settle\n")
		}
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List records flagged as conflicting",
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd)
		defer e.Close()

		conflicts, err := e.coord.Conflicts(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing conflicts: %v\n", err)
			os.Exit(1)
		}
		if len(conflicts) == 0 {
			fmt.Println("No conflicts")
			return
		}

		for _, c := range conflicts {
			fmt.Printf("%s  (flagged %s)\n", c.RecordKey, c.LastSyncAt.Format(time.RFC3339))
		}
		fmt.Printf("\n%d conflict(s). Settle with 'tm resolve <task-id> --keep local|remote'\n", len(conflicts))
	},
}

var resolveKeep string

var resolveCmd = &cobra.Command{
	Use:   "resolve <task-id>",
	Short: "Settle a flagged conflict",
	Long: `Settle a conflict by declaring a winner. --keep local pushes the
document's copy to the remote repository; --keep remote pulls the
remote copy into the document.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if resolveKeep != "local" && resolveKeep != "remote" {
			fmt.Fprintf(os.Stderr, "Error: --keep must be 'local' or 'remote'\n")
			os.Exit(1)
		}

		e := openEnv(cmd)
		defer e.Close()

		if err := e.coord.Resolve(cmd.Context(), args[0], resolveKeep == "local"); err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving conflict: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Resolved %s keeping the %s copy\n", args[0], resolveKeep)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveKeep, "keep", "", "winning side: local or remote")
	resolveCmd.MarkFlagRequired("keep")
	rootCmd.AddCommand(syncCmd, conflictsCmd, resolveCmd)
}
