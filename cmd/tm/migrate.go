package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/migrate"
)

var (
	migrateDryRun bool
	importBackup  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy every document task to the remote repository",
	Long: `Bulk-copy the document's task set into the remote repository,
overwriting remote rows with the same ids. No hash reconciliation is
done; use 'tm sync' for two-way reconciliation.`,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd)
		defer e.Close()

		result, err := migrate.Export(cmd.Context(), e.repo, e.db, migrate.Options{
			AccountID: e.cfg.AccountID,
			DryRun:    migrateDryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during export: %v\n", err)
			os.Exit(1)
		}
		printMigrateResult("Exported", result)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the document with the remote repository's tasks",
	Long: `Overwrite the document's task set with the remote repository's
content. Use --backup to copy the current document aside first.`,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd)
		defer e.Close()

		result, err := migrate.Import(cmd.Context(), e.repo, e.db, migrate.Options{
			AccountID: e.cfg.AccountID,
			DryRun:    migrateDryRun,
			Backup:    importBackup,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during import: %v\n", err)
			os.Exit(1)
		}
		printMigrateResult("Imported", result)
	},
}

func printMigrateResult(verb string, result *migrate.Result) {
	if migrateDryRun {
		verb = "Would have " + strings.ToLower(verb)
	}
	fmt.Printf("%s %d task(s), %d dependency edge(s)\n", verb, result.TasksMigrated, result.DepsMigrated)
	if result.BackupCreated != "" {
		fmt.Printf("Backup: %s\n", result.BackupCreated)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", e)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func init() {
	exportCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview without writing")
	importCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview without writing")
	importCmd.Flags().BoolVar(&importBackup, "backup", false, "back up the document before overwriting")
	rootCmd.AddCommand(exportCmd, importCmd)
}
