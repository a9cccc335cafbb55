package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
)

var showRemote bool

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task",
	Long: `Show a task from the local document, or with --remote the copy
stored in the remote repository (including its subtasks).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		taskID := args[0]

		if showRemote {
			e := openEnv(cmd)
			defer e.Close()

			task, err := e.db.GetTask(cmd.Context(), e.cfg.AccountID, taskID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading remote task: %v\n", err)
				os.Exit(1)
			}
			if task == nil {
				fmt.Fprintf(os.Stderr, "Task %s not found in remote repository\n", taskID)
				os.Exit(1)
			}
			printTaskDetails(task.ID, task.Title, task.Description, string(task.Status),
				string(task.Priority), task.Dependencies)
			for _, sub := range task.Subtasks {
				fmt.Printf("  subtask: %s  %s\n", sub.ID, sub.Title)
			}
			return
		}

		cfg := loadConfig()
		repo := filestore.NewLocalRepository(cfg.DocumentPath, nil)
		tasks, err := repo.LoadTasks()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading tasks: %v\n", err)
			os.Exit(1)
		}
		for _, t := range tasks {
			if t.ID == taskID {
				printTaskDetails(t.ID, t.Title, t.Description, string(t.Status),
					string(t.Priority), t.Dependencies)
				return
			}
		}
		fmt.Fprintf(os.Stderr, "Task %s not found in %s\n", taskID, cfg.DocumentPath)
		os.Exit(1)
	},
}

func printTaskDetails(id, title, description, status, priority string, deps []string) {
	fmt.Printf("ID:          %s\n", id)
	fmt.Printf("Title:       %s\n", title)
	fmt.Printf("Status:      %s\n", status)
	fmt.Printf("Priority:    %s\n", priority)
	if len(deps) > 0 {
		fmt.Printf("Depends on:  %s\n", strings.Join(deps, ", "))
	}
	if description != "" {
		fmt.Printf("\n%s\n", description)
	}
}

func init() {
	showCmd.Flags().BoolVar(&showRemote, "remote", false, "show the remote copy")
	rootCmd.AddCommand(showCmd)
}
