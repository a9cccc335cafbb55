// Command tm manages a local task document kept in sync with a remote
// relational repository.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eyaltoledano/claude-task-master-sub019/internal/config"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/db"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/filestore"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/logging"
	"github.com/eyaltoledano/claude-task-master-sub019/internal/sync"
)

var rootCmd = &cobra.Command{
	Use:   "tm",
	Short: "Task persistence and synchronization engine",
	Long: `tm keeps a JSON task document (.taskmaster/tasks.json) reconciled
with a remote relational repository (SQLite, libsql, or Postgres).

Local edits go to the document; 'tm sync' or the watch daemon push
them to the remote side and pull remote changes back. Records changed
on both sides are flagged as conflicts and settled with 'tm resolve'.`,
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default .taskmaster/config.yaml)")
}

// loadConfig loads the effective configuration for a command.
func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// env bundles the stores a command works with.
type env struct {
	cfg   *config.Config
	repo  *filestore.LocalRepository
	db    *db.DB
	coord sync.Coordinator
}

// openEnv opens the document repository and the remote database per
// the configuration. The caller must Close it.
func openEnv(cmd *cobra.Command) *env {
	cfg := loadConfig()
	repo := filestore.NewLocalRepository(cfg.DocumentPath, nil)

	database, err := db.Open(cfg.Remote.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening remote database: %v\n", err)
		os.Exit(1)
	}
	if err := database.InitSchema(cmd.Context()); err != nil {
		database.Close()
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Output(cfg.Log), "sync")
	return &env{
		cfg:   cfg,
		repo:  repo,
		db:    database,
		coord: sync.New(repo, database, cfg.AccountID, logger),
	}
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing database: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
