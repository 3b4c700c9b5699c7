package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/halverson/salesimport/internal/store"
	"github.com/halverson/salesimport/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the import HTTP API",
	Long: `Serve exposes the pipeline over HTTP: POST /api/imports accepts a
multipart file upload and returns the run report as JSON; GET /healthz
reports database reachability.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	server := web.NewServer(cfg, store.NewPostgres(pool), pool)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped")
	return nil
}
