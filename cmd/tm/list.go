package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/schema"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks from the local document",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		repo := filestore.NewLocalRepository(cfg.DocumentPath, nil)

		tasks, err := repo.LoadTasks()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading tasks: %v\n", err)
			os.Exit(1)
		}

		if listStatus != "" && !schema.Status(listStatus).Valid() {
			fmt.Fprintf(os.Stderr, "Error: unknown status %q\n", listStatus)
			os.Exit(1)
		}

		schema.SortTasks(tasks)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDEPS\tTITLE")
		shown := 0
		for _, t := range tasks {
			if listStatus != "" && string(t.Status) != listStatus {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Status, t.Priority, len(t.Dependencies), t.Title)
			shown++
		}
		w.Flush()
		fmt.Printf("\n%d task(s)\n", shown)
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	rootCmd.AddCommand(listCmd)
}
