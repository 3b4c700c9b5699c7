// Package cli wires the salesimport commands: one-shot file imports and the
// HTTP server mode. Configuration, logging, and the database pool are set up
// here so the pipeline packages stay free of process concerns.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/halverson/salesimport/internal/config"
	"github.com/halverson/salesimport/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "salesimport",
	Short: "Import QuickBooks sales reports into Postgres",
	Long: `salesimport reads QuickBooks "Sales by Customer Detail" exports (CSV or
XLSX), groups rows into orders, resolves people, companies, and products
against the database, and persists each order atomically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load .env if present; real environment variables are overwritten
		// so a checked-in .env always wins in development.
		if err := godotenv.Overload(); err == nil {
			slog.Info("loaded .env file")
		}

		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the CLI. It is the only entry point main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openPool connects to Postgres with the configured pool settings and
// verifies the connection before returning.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
