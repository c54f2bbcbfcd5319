// Package commands implements the groupctl command line.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mmynk/resultgroups/internal/config"
	"github.com/mmynk/resultgroups/internal/service"
	"github.com/mmynk/resultgroups/internal/storage"
	"github.com/mmynk/resultgroups/internal/storage/cache"
	"github.com/mmynk/resultgroups/internal/storage/sqlite"
	"github.com/mmynk/resultgroups/pkg/logging"
)

// app carries the state shared by subcommands for one invocation.
type app struct {
	configFile string
	dbPath     string
	logLevel   string

	openStore func(cfg *config.Config) (storage.Store, error)
	store     storage.Store
	svc       *service.GroupService
}

// NewRootCommand builds the groupctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{openStore: openStore})
}

func newRootCommand(a *app) *cobra.Command {
	command := &cobra.Command{
		Use:          "groupctl",
		Short:        "Inspect and record grouped results",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	command.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	command.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path, overrides db_path")
	command.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level, overrides log_level")

	command.AddCommand(newMemberCommand(a))
	command.AddCommand(newGroupCommand(a))
	a.closeAfterRun(command)
	return command
}

// closeAfterRun wraps every runnable command so the store is closed whether
// or not RunE fails. Cobra skips post-run hooks after an error.
func (a *app) closeAfterRun(command *cobra.Command) {
	for _, sub := range command.Commands() {
		a.closeAfterRun(sub)
	}
	if command.RunE == nil {
		return
	}
	run := command.RunE
	command.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := a.close(); err == nil {
				err = closeErr
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) open() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	logging.Setup(cfg.LogLevel)

	store, err := a.openStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return err
	}
	slog.Debug("Storage initialized", "database", cfg.DBPath, "cache_size", cfg.CacheSize)

	a.store = store
	a.svc = service.NewGroupService(store)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.svc = nil, nil
	return err
}

// openStore opens the SQLite store, fronted by the group cache when enabled.
func openStore(cfg *config.Config) (storage.Store, error) {
	db, err := sqlite.NewWithOptions(cfg.DBPath, sqlite.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		BusyTimeout:  cfg.BusyTimeout(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize == 0 {
		return db, nil
	}
	cached, err := cache.New(db, cfg.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cached, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
