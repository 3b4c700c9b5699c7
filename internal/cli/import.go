package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/halverson/salesimport/internal/csvio"
	"github.com/halverson/salesimport/internal/importer"
	"github.com/halverson/salesimport/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a sales report file",
	Long: `Import reads one CSV or XLSX sales report, runs the full pipeline, and
prints the run report. The command exits non-zero when the run halts on a
batch-fatal error; orders committed before the halt stay committed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Import.Timeout)
		defer cancel()
	}

	rows, err := csvio.ReadTable(path, cfg.Import.MaxFileSize)
	if err != nil {
		return err
	}

	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	imp := importer.New(store.NewPostgres(pool), cfg.Import)
	report, runErr := imp.Run(ctx, rows)

	fmt.Print(report.Summary())

	if runErr != nil {
		return fmt.Errorf("import halted: %w", runErr)
	}
	return nil
}
