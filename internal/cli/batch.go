package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
	"github.com/pricelens/backend/internal/usecase"
)

type BatchCmd struct {
	cli    *CLI
	format string
	outDir string
}

func NewBatchCmd(cli *CLI) *cobra.Command {
	bc := &BatchCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "batch FILE.csv",
		Short: "Analyze every product of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  bc.run,
	}

	cmd.Flags().StringVar(&bc.format, "format", string(export.FormatFull), "Output format: full, competitors, history or json")
	cmd.Flags().StringVar(&bc.outDir, "out", "", "Directory to write the export file to (default prints it)")

	return cmd
}

func (bc *BatchCmd) run(cmd *cobra.Command, args []string) error {
	products, err := readProducts(args[0])
	if err != nil {
		return err
	}
	if _, err := export.ParseFormat(bc.format); err != nil {
		return err
	}

	cfg, logger, err := bc.cli.setup()
	if err != nil {
		return err
	}

	service, release, err := bc.cli.services(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	results, err := service.AnalyzeBatch(cmd.Context(), products)
	if err != nil {
		return err
	}

	return bc.cli.writeResults(logger, bc.format, bc.outDir, results)
}

func readProducts(path string) ([]domain.CsvProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return usecase.ParseProductsCSV(string(data))
}
