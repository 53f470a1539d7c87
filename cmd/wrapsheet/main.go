package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/util"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares once the root flags are parsed.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Wrap sheet task tracker and association tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "wrapsheet.yaml", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")

	cmd.AddCommand(
		serveCmd(a),
		syncOfficesCmd(a),
		boardCmd(a),
		reportCmd(a),
		exportCmd(a),
		importCmd(a),
		tokenCmd(),
	)
	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg
	a.logger = util.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)
	return nil
}

// openDB opens the configured database, creating its directory first.
func (a *app) openDB(ctx context.Context) (*database.Database, error) {
	if err := util.EnsureParentDir(a.cfg.DBPath); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
