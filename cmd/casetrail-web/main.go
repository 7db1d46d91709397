package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scrypster/casetrail/internal/config"
	"github.com/scrypster/casetrail/internal/engine"
	"github.com/scrypster/casetrail/internal/server"
	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/internal/storage/postgres"
	"github.com/scrypster/casetrail/internal/storage/sqlite"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "casetrail-web",
		Short: "Case timeline and reminder tracking service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd(), backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			addr, err := server.Start(ctx, cfg, store, logger)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			logger.Info("casetrail running", zap.String("url", "http://"+addr))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			logger.Info("shutting down")
			cancel()
			time.Sleep(1 * time.Second)
			return nil
		},
	}
}

func backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Create opening timeline events for cases with no history",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, store, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			timelineEngine := engine.NewTimelineEngine(store, logger)
			result, err := timelineEngine.Backfill(cmd.Context(), "backfill")
			if err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}
			logger.Info("backfill complete",
				zap.Int("created", result.Created),
				zap.Int("total", result.Total))
			return nil
		},
	}
}

// setup loads config and constructs the logger and graph store shared by
// both subcommands.
func setup() (*config.Config, *zap.Logger, storage.GraphStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return cfg, logger, store, nil
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	return zapCfg.Build()
}

// newStore selects the storage backend. Postgres runs behind a circuit
// breaker since the database is a remote dependency; embedded SQLite
// does not need one.
func newStore(cfg *config.Config, logger *zap.Logger) (storage.GraphStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		store, err := postgres.NewGraphStore(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres store wrapped with circuit breaker")
		return storage.NewBreakerStore(store), nil
	case "sqlite", "":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewGraphStore(cfg.Storage.DataPath + "/casetrail.db")
	default:
		return nil, fmt.Errorf("unknown storage engine: %s", cfg.Storage.Engine)
	}
}
