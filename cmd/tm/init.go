package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/config"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a .taskmaster directory",
	Long: `Create the .taskmaster directory with a default config file and an
empty task document. Safe to re-run; existing files are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := config.ProjectDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}

		cfgPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			if err := config.WriteDefault(cfgPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Created %s\n", cfgPath)
		}

		cfg := loadConfig()
		store := filestore.New()
		exists, err := store.Exists(cfg.DocumentPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking document: %v\n", err)
			os.Exit(1)
		}
		if !exists {
			// SaveTasks on an empty set creates the document.
			repo := filestore.NewLocalRepository(cfg.DocumentPath, store)
			if err := repo.SaveTasks(nil); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating document: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Created %s\n", cfg.DocumentPath)
		}

		fmt.Println("Initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
